package transcript

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
)

// BufferStatus is the observability snapshot for one session's buffer
type BufferStatus struct {
	BufferSize         int           `json:"buffer_size"`
	LastFlushTime      time.Time     `json:"last_flush_time"`
	TimeSinceLastFlush time.Duration `json:"time_since_last_flush"`
}

// Buffer accumulates final utterances per session and flushes them to the
// durable store in batches. Adds never touch durable-store I/O; flushing is
// the only path that does, and at most one flush runs against the store per
// session at a time. Entries that arrive while a flush is in progress
// survive into the next flush cycle.
type Buffer struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionBuffer

	repo      repositories.TranscriptRepository
	threshold int
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

type sessionBuffer struct {
	mu        sync.Mutex
	entries   map[string]*entities.SessionTranscript // keyed by resultID
	lastFlush time.Time

	// flushMu serializes flushes for this session; adds stay on entries.mu
	// so ingestion never waits on store latency.
	flushMu sync.Mutex
}

// NewBuffer creates a transcript buffer with the given flush policy
func NewBuffer(repo repositories.TranscriptRepository, threshold int, interval time.Duration, logger *zap.Logger) *Buffer {
	return &Buffer{
		sessions:  make(map[uuid.UUID]*sessionBuffer),
		repo:      repo,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the buffer's clock; used by tests to drive the
// time-based flush trigger deterministically
func (b *Buffer) WithClock(now func() time.Time) *Buffer {
	b.now = now
	return b
}

func (b *Buffer) session(sessionID uuid.UUID) *sessionBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	sb, ok := b.sessions[sessionID]
	if !ok {
		sb = &sessionBuffer{
			entries:   make(map[string]*entities.SessionTranscript),
			lastFlush: b.now(),
		}
		b.sessions[sessionID] = sb
	}
	return sb
}

// Add buffers the terminal revision of an utterance and returns the current
// buffer size for the session. Partial revisions are ignored at zero cost.
// A repeated ResultID replaces the buffered entry in place, so retransmitted
// finals stay idempotent. The boolean reports whether the size threshold has
// been reached and a flush should be scheduled.
func (b *Buffer) Add(sessionID uuid.UUID, u *entities.Utterance, speaker entities.Speaker) (int, bool) {
	if u.IsPartial {
		sb := b.session(sessionID)
		sb.mu.Lock()
		size := len(sb.entries)
		sb.mu.Unlock()
		return size, false
	}

	record := entities.NewSessionTranscript(sessionID, u, speaker)

	sb := b.session(sessionID)
	sb.mu.Lock()
	if prev, ok := sb.entries[u.ResultID]; ok {
		// Keep the original row identity so a replayed final upserts
		// rather than racing two inserts for the same key.
		record.ID = prev.ID
	}
	sb.entries[u.ResultID] = record
	size := len(sb.entries)
	sb.mu.Unlock()

	return size, size >= b.threshold
}

// Pending returns the not-yet-flushed entries for a session, ordered by
// start time with ResultID as the stable tiebreaker
func (b *Buffer) Pending(sessionID uuid.UUID) []*entities.SessionTranscript {
	sb := b.session(sessionID)
	sb.mu.Lock()
	out := make([]*entities.SessionTranscript, 0, len(sb.entries))
	for _, t := range sb.entries {
		out = append(out, t)
	}
	sb.mu.Unlock()

	sortTranscripts(out)
	return out
}

// Status returns the observability snapshot for a session
func (b *Buffer) Status(sessionID uuid.UUID) BufferStatus {
	sb := b.session(sessionID)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return BufferStatus{
		BufferSize:         len(sb.entries),
		LastFlushTime:      sb.lastFlush,
		TimeSinceLastFlush: b.now().Sub(sb.lastFlush),
	}
}

// Flush persists the session's buffered entries with a batched upsert and
// clears exactly the flushed set. Safe to call concurrently or redundantly:
// a racing flush waits its turn, finds nothing left, and no-ops. Returns the
// number of records flushed.
func (b *Buffer) Flush(ctx context.Context, sessionID uuid.UUID) (int, error) {
	sb := b.session(sessionID)

	sb.flushMu.Lock()
	defer sb.flushMu.Unlock()

	sb.mu.Lock()
	snapshot := make(map[string]*entities.SessionTranscript, len(sb.entries))
	for rid, t := range sb.entries {
		snapshot[rid] = t
	}
	sb.mu.Unlock()

	if len(snapshot) == 0 {
		return 0, nil
	}

	batch := make([]*entities.SessionTranscript, 0, len(snapshot))
	for _, t := range snapshot {
		batch = append(batch, t)
	}
	sortTranscripts(batch)

	if err := b.repo.UpsertBatch(ctx, batch); err != nil {
		return 0, err
	}

	sb.mu.Lock()
	for rid, t := range snapshot {
		// A newer revision that arrived mid-flush replaces the pointer;
		// leave it for the next cycle.
		if sb.entries[rid] == t {
			delete(sb.entries, rid)
		}
	}
	sb.lastFlush = b.now()
	sb.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("flushed transcript buffer",
			zap.String("session_id", sessionID.String()),
			zap.Int("count", len(batch)),
		)
	}
	return len(batch), nil
}

// NeedsTimedFlush reports whether the session buffer is non-empty and stale
// past the flush interval
func (b *Buffer) NeedsTimedFlush(sessionID uuid.UUID) bool {
	sb := b.session(sessionID)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.entries) > 0 && b.now().Sub(sb.lastFlush) > b.interval
}

// SessionIDs lists sessions that currently hold buffer state
func (b *Buffer) SessionIDs() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uuid.UUID, 0, len(b.sessions))
	for id := range b.sessions {
		out = append(out, id)
	}
	return out
}

// Drop discards a session's buffer state after teardown
func (b *Buffer) Drop(sessionID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

// Sweep runs the time-based flush trigger over every tracked session
func (b *Buffer) Sweep(ctx context.Context) {
	for _, sessionID := range b.SessionIDs() {
		if !b.NeedsTimedFlush(sessionID) {
			continue
		}
		if _, err := b.Flush(ctx, sessionID); err != nil && b.logger != nil {
			b.logger.Warn("timed flush failed, will retry next sweep",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
	}
}

// StartSweeper runs Sweep on the given tick until the context is cancelled
func (b *Buffer) StartSweeper(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep(ctx)
		}
	}
}

// sortTranscripts orders by start time, then ResultID so chunked
// sub-utterances never visually reorder
func sortTranscripts(ts []*entities.SessionTranscript) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].StartTimeMs != ts[j].StartTimeMs {
			return ts[i].StartTimeMs < ts[j].StartTimeMs
		}
		return ts[i].ResultID < ts[j].ResultID
	})
}
