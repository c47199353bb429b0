package transcript

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/usecase/language"
	"github.com/eum-live/caption-pipeline/internal/usecase/translation"
)

type fakeRoster struct {
	participants []*entities.SessionParticipant
}

func (r *fakeRoster) ListParticipants(_ context.Context, _ uuid.UUID) ([]*entities.SessionParticipant, error) {
	return r.participants, nil
}

type fakeFanout struct {
	requests chan translation.Request
}

func newFakeFanout() *fakeFanout {
	return &fakeFanout{requests: make(chan translation.Request, 16)}
}

func (f *fakeFanout) ProcessTranslation(_ context.Context, req translation.Request) {
	f.requests <- req
}

type fakeArchiver struct {
	archived chan uuid.UUID
}

func (a *fakeArchiver) ArchiveTranscripts(_ context.Context, sessionID uuid.UUID, _ []*entities.SessionTranscript) (string, error) {
	if a.archived != nil {
		a.archived <- sessionID
	}
	return "bucket/sessions/" + sessionID.String() + ".json", nil
}

func newTestService(repo *fakeRepo, roster *fakeRoster, fanout Fanout, archiver Archiver) (Service, *Buffer) {
	buf := NewBuffer(repo, 100, 30*time.Second, nil)
	svc := NewService(buf, repo, roster, language.NewAnalyzer(), fanout, archiver, 5*time.Second, nil)
	return svc, buf
}

func TestIngestRejectsMalformed(t *testing.T) {
	svc, buf := newTestService(&fakeRepo{}, nil, nil, nil)
	sessionID := uuid.New()

	bad := finalUtterance("", "text", 1000)
	if err := svc.Ingest(context.Background(), sessionID, bad); err == nil {
		t.Fatal("expected rejection for missing result id")
	}
	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatal("malformed utterance must not be buffered")
	}
}

func TestIngestDropsPartials(t *testing.T) {
	fanout := newFakeFanout()
	svc, buf := newTestService(&fakeRepo{}, nil, fanout, nil)
	sessionID := uuid.New()

	partial := finalUtterance("r1", "안녕하세", 1000)
	partial.IsPartial = true
	if err := svc.Ingest(context.Background(), sessionID, partial); err != nil {
		t.Fatalf("partial ingest failed: %v", err)
	}

	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatal("partial must not be buffered")
	}
	select {
	case <-fanout.requests:
		t.Fatal("partial must not fan out")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIngestBuffersAndFansOut(t *testing.T) {
	fanout := newFakeFanout()
	userID := uuid.New()
	roster := &fakeRoster{participants: []*entities.SessionParticipant{
		{UserID: userID, Identity: userID.String(), DisplayName: "지수"},
	}}
	svc, buf := newTestService(&fakeRepo{}, roster, fanout, nil)
	sessionID := uuid.New()

	u := finalUtterance("r1", "오늘 회의를 시작하겠습니다.", 1000)
	u.SpeakerAttendeeID = userID.String()
	if err := svc.Ingest(context.Background(), sessionID, u); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if status := buf.Status(sessionID); status.BufferSize != 1 {
		t.Fatalf("expected 1 buffered entry, got %d", status.BufferSize)
	}

	select {
	case req := <-fanout.requests:
		if req.SessionID != sessionID || req.Utterance.ResultID != "r1" {
			t.Fatalf("unexpected fan-out request: %+v", req)
		}
		if req.Speaker.UserID != userID || req.Speaker.DisplayName != "지수" {
			t.Fatalf("speaker not resolved from roster: %+v", req.Speaker)
		}
		if req.OrderingToken != u.StartTimeMs {
			t.Fatalf("ordering token %d, want %d", req.OrderingToken, u.StartTimeMs)
		}
		if !req.Analysis.IsComplete {
			t.Fatal("terminal-punctuation utterance should analyze as complete")
		}
	case <-time.After(time.Second):
		t.Fatal("fan-out never happened")
	}
}

func TestGetFinalTranscriptsMergesDurableAndPending(t *testing.T) {
	repo := &fakeRepo{}
	svc, buf := newTestService(repo, nil, nil, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "buffered copy", 1000), entities.Speaker{})
	buf.Add(sessionID, finalUtterance("r2", "only buffered", 2000), entities.Speaker{})
	if _, err := buf.Flush(context.Background(), sessionID); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	// r2 arrives again after the flush: now durable AND re-buffered
	buf.Add(sessionID, finalUtterance("r2", "re-buffered copy", 2000), entities.Speaker{})
	buf.Add(sessionID, finalUtterance("r3", "pending only", 3000), entities.Speaker{})

	merged, err := svc.GetFinalTranscripts(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged transcripts, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i-1].StartTimeMs > merged[i].StartTimeMs {
			t.Fatal("merged transcripts out of order")
		}
	}
	// Durable record wins the duplicate
	for _, tr := range merged {
		if tr.ResultID == "r2" && tr.Text != "only buffered" {
			t.Fatalf("durable record must win dedupe, got %q", tr.Text)
		}
	}
}

func TestFlushOnSessionEndRetriesOnce(t *testing.T) {
	repo := &fakeRepo{failures: 1}
	archiver := &fakeArchiver{archived: make(chan uuid.UUID, 1)}
	svc, buf := newTestService(repo, nil, nil, archiver)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})

	count, err := svc.FlushOnSessionEnd(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 flushed, got %d", count)
	}

	select {
	case got := <-archiver.archived:
		if got != sessionID {
			t.Fatalf("archived wrong session %s", got)
		}
	default:
		t.Fatal("transcript was not archived after final flush")
	}

	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatal("session buffer must be dropped after teardown")
	}
}

func TestFlushOnSessionEndPermanentFailureNotRetried(t *testing.T) {
	attempts := 0
	repo := &fakeRepo{failures: 2, failErr: errors.New("invalid input syntax for type uuid")}
	repo.onUpsert = func() { attempts++ }
	svc, buf := newTestService(repo, nil, nil, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})

	if _, err := svc.FlushOnSessionEnd(context.Background(), sessionID); err == nil {
		t.Fatal("expected the permanent failure to surface")
	}
	// A failure that keeps failing the same way gets no second attempt
	if attempts != 1 {
		t.Fatalf("expected 1 upsert attempt, got %d", attempts)
	}
	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatal("buffer must be dropped even when the final flush fails")
	}
}

func TestFlushOnSessionEndRecoverableFailure(t *testing.T) {
	repo := &fakeRepo{failures: 2}
	svc, buf := newTestService(repo, nil, nil, nil)
	sessionID := uuid.New()

	buf.Add(sessionID, finalUtterance("r1", "one", 1000), entities.Speaker{})

	if _, err := svc.FlushOnSessionEnd(context.Background(), sessionID); err == nil {
		t.Fatal("expected error after both attempts failed")
	}
	// Teardown still proceeds: buffer state is discarded
	if status := buf.Status(sessionID); status.BufferSize != 0 {
		t.Fatal("buffer must be dropped even when the final flush fails")
	}
}
