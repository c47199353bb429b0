package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// fakeRepo records upsert batches and can fail on demand
type fakeRepo struct {
	mu       sync.Mutex
	batches  [][]*entities.SessionTranscript
	failures int
	failErr  error
	onUpsert func()
}

func (r *fakeRepo) UpsertBatch(_ context.Context, transcripts []*entities.SessionTranscript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onUpsert != nil {
		r.onUpsert()
	}
	if r.failures > 0 {
		r.failures--
		if r.failErr != nil {
			return r.failErr
		}
		return errors.New("connection refused")
	}
	batch := make([]*entities.SessionTranscript, len(transcripts))
	copy(batch, transcripts)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*entities.SessionTranscript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SessionTranscript
	for _, batch := range r.batches {
		for _, t := range batch {
			if t.SessionID == sessionID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) CountBySession(_ context.Context, sessionID uuid.UUID) (int64, error) {
	ts, _ := r.ListBySession(context.Background(), sessionID)
	return int64(len(ts)), nil
}

func (r *fakeRepo) flushedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func finalUtterance(resultID, text string, startMs int64) *entities.Utterance {
	return &entities.Utterance{
		ResultID:          resultID,
		Text:              text,
		SpeakerAttendeeID: "attendee-1",
		StartTimeMs:       startMs,
		EndTimeMs:         startMs + 1000,
		LanguageCode:      "ko",
	}
}

func TestBufferIgnoresPartials(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	partial := finalUtterance("r1", "안녕", 1000)
	partial.IsPartial = true

	size, trigger := buf.Add(sessionID, partial, entities.Speaker{})
	if size != 0 || trigger {
		t.Fatalf("partial must not be buffered, got size=%d trigger=%v", size, trigger)
	}
	if pending := buf.Pending(sessionID); len(pending) != 0 {
		t.Fatalf("expected empty buffer, got %d entries", len(pending))
	}
}

func TestBufferSizeThreshold(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 3, 30*time.Second, nil)
	sessionID := uuid.New()

	if _, trigger := buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{}); trigger {
		t.Fatal("threshold reported too early")
	}
	if _, trigger := buf.Add(sessionID, finalUtterance("r2", "two", 2000), entities.Speaker{}); trigger {
		t.Fatal("threshold reported too early")
	}
	size, trigger := buf.Add(sessionID, finalUtterance("r3", "three", 3000), entities.Speaker{})
	if size != 3 || !trigger {
		t.Fatalf("expected threshold at size 3, got size=%d trigger=%v", size, trigger)
	}
}

func TestBufferReplacesRepeatedResultID(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "first version", 1000), entities.Speaker{})
	firstID := buf.Pending(sessionID)[0].ID

	size, _ := buf.Add(sessionID, finalUtterance("r1", "revised version", 1000), entities.Speaker{})
	if size != 1 {
		t.Fatalf("repeated result id must replace in place, got size %d", size)
	}

	pending := buf.Pending(sessionID)
	if pending[0].Text != "revised version" {
		t.Fatalf("expected replacement, got %q", pending[0].Text)
	}
	if pending[0].ID != firstID {
		t.Fatal("replacement must keep the original row identity")
	}
}

func TestBufferFlushClearsAndIsIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})
	buf.Add(sessionID, finalUtterance("r2", "two", 2000), entities.Speaker{})

	count, err := buf.Flush(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 flushed, got %d", count)
	}
	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatalf("buffer not cleared after flush, size %d", status.BufferSize)
	}

	// A redundant flush finds nothing and no-ops
	count, err = buf.Flush(context.Background(), sessionID)
	if err != nil || count != 0 {
		t.Fatalf("redundant flush should no-op, got count=%d err=%v", count, err)
	}
	if repo.flushedCount() != 2 {
		t.Fatalf("store saw %d records, want 2", repo.flushedCount())
	}
}

func TestBufferFlushFailureKeepsEntries(t *testing.T) {
	repo := &fakeRepo{failures: 1}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})

	if _, err := buf.Flush(context.Background(), sessionID); err == nil {
		t.Fatal("expected flush error")
	}
	if status := buf.Status(sessionID); status.BufferSize != 1 {
		t.Fatalf("failed flush must keep entries, size %d", status.BufferSize)
	}

	// Next attempt succeeds and drains
	count, err := buf.Flush(context.Background(), sessionID)
	if err != nil || count != 1 {
		t.Fatalf("retry flush got count=%d err=%v", count, err)
	}
}

func TestBufferKeepsMidFlushArrivals(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "original", 1000), entities.Speaker{})

	// A revised final for the same result id lands while the store write is
	// in flight; it must survive into the next cycle.
	repo.onUpsert = func() {
		buf.Add(sessionID, finalUtterance("r1", "revised mid-flush", 1000), entities.Speaker{})
	}

	if _, err := buf.Flush(context.Background(), sessionID); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	pending := buf.Pending(sessionID)
	if len(pending) != 1 || pending[0].Text != "revised mid-flush" {
		t.Fatalf("mid-flush arrival lost: %+v", pending)
	}
}

func TestBufferTimedFlushTrigger(t *testing.T) {
	repo := &fakeRepo{}
	current := time.Unix(1_700_000_000, 0)
	buf := NewBuffer(repo, 30, 30*time.Second, nil).WithClock(func() time.Time { return current })
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})
	if buf.NeedsTimedFlush(sessionID) {
		t.Fatal("fresh buffer must not need a timed flush")
	}

	current = current.Add(31 * time.Second)
	if !buf.NeedsTimedFlush(sessionID) {
		t.Fatal("stale buffer must need a timed flush")
	}

	buf.Sweep(context.Background())
	if repo.flushedCount() != 1 {
		t.Fatalf("sweep did not flush, store has %d", repo.flushedCount())
	}
	if buf.NeedsTimedFlush(sessionID) {
		t.Fatal("flushed buffer must not need another timed flush")
	}
}

func TestBufferConcurrentFlushSingleWriter(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	for i := 0; i < 10; i++ {
		buf.Add(sessionID, finalUtterance(string(rune('a'+i)), "text", int64(1000*(i+1))), entities.Speaker{})
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf.Flush(context.Background(), sessionID)
		}()
	}
	wg.Wait()

	if repo.flushedCount() != 10 {
		t.Fatalf("concurrent flushes wrote %d records, want exactly 10", repo.flushedCount())
	}
}

func TestBufferDrop(t *testing.T) {
	repo := &fakeRepo{}
	buf := NewBuffer(repo, 30, 30*time.Second, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})
	buf.Drop(sessionID)

	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatalf("dropped session still holds %d entries", status.BufferSize)
	}
}
