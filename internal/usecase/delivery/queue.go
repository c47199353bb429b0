package delivery

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/pkg/retry"
)

// Pusher is the real-time push channel to a single participant. Delivery is
// fire-and-forget for correctness; acknowledgement only feeds logs.
type Pusher interface {
	SendToUser(ctx context.Context, sessionID, userID uuid.UUID, payload []byte) error
}

type task struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	payload   []byte
}

// Queue is the outbound caption queue in front of the push channel. It
// bounds memory, retries transient send failures a small number of times,
// and drops with a logged warning after that — a slow or broken channel to
// one participant never backpressures translation fan-out.
type Queue struct {
	pusher     Pusher
	tasks      chan task
	maxRetries uint64
	retryBase  time.Duration
	logger     *zap.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue creates a delivery queue with the given capacity and retry bound
func NewQueue(pusher Pusher, capacity int, maxRetries uint64, logger *zap.Logger) *Queue {
	return &Queue{
		pusher:     pusher,
		tasks:      make(chan task, capacity),
		maxRetries: maxRetries,
		retryBase:  200 * time.Millisecond,
		logger:     logger,
	}
}

// Start launches the worker goroutines; they drain until ctx is cancelled
func (q *Queue) Start(ctx context.Context, workers int) {
	q.startOnce.Do(func() {
		if workers < 1 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx)
		}
	})
}

// Wait blocks until all workers have exited
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Deliver implements the orchestrator's caption sink. Enqueueing never
// blocks; when the queue is full the caption is dropped with a warning.
func (q *Queue) Deliver(sessionID, userID uuid.UUID, caption *entities.TranslatedCaption) {
	payload, err := json.Marshal(caption)
	if err != nil {
		if q.logger != nil {
			q.logger.Warn("failed to encode caption payload", zap.Error(err))
		}
		return
	}

	select {
	case q.tasks <- task{sessionID: sessionID, userID: userID, payload: payload}:
	default:
		if q.logger != nil {
			q.logger.Warn("delivery queue full, dropping caption",
				zap.String("session_id", sessionID.String()),
				zap.String("user_id", userID.String()),
			)
		}
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.send(ctx, t)
		}
	}
}

func (q *Queue) send(ctx context.Context, t task) {
	operation := func() error {
		err := q.pusher.SendToUser(ctx, t.sessionID, t.userID, t.payload)
		if err != nil && retry.Permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(q.retryBase),
	), q.maxRetries)

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if q.logger != nil {
			q.logger.Warn("dropping caption after delivery retries",
				zap.String("session_id", t.sessionID.String()),
				zap.String("user_id", t.userID.String()),
				zap.Error(err),
			)
		}
	}
}
