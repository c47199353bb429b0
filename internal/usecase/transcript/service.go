package transcript

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
	"github.com/eum-live/caption-pipeline/internal/usecase/language"
	"github.com/eum-live/caption-pipeline/internal/usecase/translation"
	"github.com/eum-live/caption-pipeline/pkg/retry"
)

// Fanout triggers multilingual distribution of one finalized utterance
type Fanout interface {
	ProcessTranslation(ctx context.Context, req translation.Request)
}

// Archiver stores a session's full transcript after the final flush
type Archiver interface {
	ArchiveTranscripts(ctx context.Context, sessionID uuid.UUID, transcripts []*entities.SessionTranscript) (string, error)
}

// Service is the transcript pipeline's entry surface
type Service interface {
	Ingest(ctx context.Context, sessionID uuid.UUID, u *entities.Utterance) error
	GetFinalTranscripts(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionTranscript, error)
	Flush(ctx context.Context, sessionID uuid.UUID) (int, error)
	FlushOnSessionEnd(ctx context.Context, sessionID uuid.UUID) (int, error)
	BufferStatus(sessionID uuid.UUID) BufferStatus
}

type service struct {
	buffer   *Buffer
	repo     repositories.TranscriptRepository
	roster   repositories.Roster
	analyzer *language.Analyzer
	fanout   Fanout
	archiver Archiver // optional

	endTimeout time.Duration
	logger     *zap.Logger
}

// NewService constructs the transcript service
func NewService(
	buffer *Buffer,
	repo repositories.TranscriptRepository,
	roster repositories.Roster,
	analyzer *language.Analyzer,
	fanout Fanout,
	archiver Archiver,
	endTimeout time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		buffer:     buffer,
		repo:       repo,
		roster:     roster,
		analyzer:   analyzer,
		fanout:     fanout,
		archiver:   archiver,
		endTimeout: endTimeout,
		logger:     logger,
	}
}

// Ingest accepts one speech-recognition event. Partials are dropped at zero
// cost; a final revision is buffered, then fanned out for translation in the
// background. Ingestion never propagates downstream failures back to the
// speech stream.
func (s *service) Ingest(ctx context.Context, sessionID uuid.UUID, u *entities.Utterance) error {
	if err := u.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Warn("rejected malformed utterance",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
		return err
	}

	if u.IsPartial {
		return nil
	}

	speaker := s.resolveSpeaker(ctx, sessionID, u)

	size, thresholdReached := s.buffer.Add(sessionID, u, speaker)
	if thresholdReached {
		go func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), s.endTimeout)
			defer cancel()
			if _, err := s.buffer.Flush(flushCtx, sessionID); err != nil && s.logger != nil {
				s.logger.Warn("size-triggered flush failed, sweeper will retry",
					zap.String("session_id", sessionID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	if s.logger != nil {
		s.logger.Debug("buffered final utterance",
			zap.String("session_id", sessionID.String()),
			zap.String("result_id", u.ResultID),
			zap.Int("buffer_size", size),
		)
	}

	if s.fanout != nil {
		req := translation.Request{
			SessionID:     sessionID,
			Utterance:     u,
			Speaker:       speaker,
			Analysis:      s.analyzer.Analyze(u.Text, u.LanguageCode),
			OrderingToken: u.StartTimeMs,
		}
		// Detached from the ingest context: translation is additive and
		// must not be cancelled by the speech stream's request lifecycle.
		go s.fanout.ProcessTranslation(context.Background(), req)
	}

	return nil
}

// GetFinalTranscripts merges durable records with not-yet-flushed buffer
// entries, deduplicated by ResultID with durable records winning, ordered by
// start time
func (s *service) GetFinalTranscripts(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionTranscript, error) {
	durable, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(durable))
	merged := make([]*entities.SessionTranscript, 0, len(durable))
	for _, t := range durable {
		seen[t.ResultID] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range s.buffer.Pending(sessionID) {
		if _, ok := seen[t.ResultID]; ok {
			continue
		}
		merged = append(merged, t)
	}

	sortTranscripts(merged)
	return merged, nil
}

// Flush forces a flush of the session's buffer
func (s *service) Flush(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return s.buffer.Flush(ctx, sessionID)
}

// FlushOnSessionEnd runs the forced final flush before the session is torn
// down: bounded per attempt, retried once on a transient failure, and never
// fatal — a flush that still fails is surfaced as a recoverable error while
// teardown proceeds.
func (s *service) FlushOnSessionEnd(ctx context.Context, sessionID uuid.UUID) (int, error) {
	count, err := s.flushBounded(ctx, sessionID)
	if err != nil && retry.Retryable(err) {
		if s.logger != nil {
			s.logger.Warn("final flush failed, retrying once",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
		count, err = s.flushBounded(ctx, sessionID)
	}

	if err != nil {
		s.buffer.Drop(sessionID)
		return 0, err
	}

	if s.logger != nil {
		s.logger.Info("final session flush complete",
			zap.String("session_id", sessionID.String()),
			zap.Int("count", count),
		)
	}

	s.archive(ctx, sessionID)
	s.buffer.Drop(sessionID)
	return count, nil
}

func (s *service) flushBounded(ctx context.Context, sessionID uuid.UUID) (int, error) {
	flushCtx, cancel := context.WithTimeout(ctx, s.endTimeout)
	defer cancel()
	return s.buffer.Flush(flushCtx, sessionID)
}

// archive uploads the full ordered transcript to object storage, best-effort
func (s *service) archive(ctx context.Context, sessionID uuid.UUID) {
	if s.archiver == nil {
		return
	}
	transcripts, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil || len(transcripts) == 0 {
		return
	}
	location, err := s.archiver.ArchiveTranscripts(ctx, sessionID, transcripts)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("transcript archive failed",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("transcript archived",
			zap.String("session_id", sessionID.String()),
			zap.String("location", location),
		)
	}
}

// BufferStatus exposes the buffer's observability snapshot
func (s *service) BufferStatus(sessionID uuid.UUID) BufferStatus {
	return s.buffer.Status(sessionID)
}

// resolveSpeaker maps the speech service's attendee identity onto the
// session roster once, at buffering time, so attribution survives the
// participant leaving later
func (s *service) resolveSpeaker(ctx context.Context, sessionID uuid.UUID, u *entities.Utterance) entities.Speaker {
	speaker := entities.Speaker{
		AttendeeID:  u.SpeakerAttendeeID,
		DisplayName: u.SpeakerAttendeeID,
	}
	if id, err := uuid.Parse(u.SpeakerExternalUserID); err == nil {
		speaker.UserID = id
	}

	if s.roster == nil {
		return speaker
	}
	participants, err := s.roster.ListParticipants(ctx, sessionID)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("speaker resolution fell back to attendee identity",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
		return speaker
	}
	for _, p := range participants {
		if p.Identity == u.SpeakerAttendeeID || (speaker.UserID != uuid.Nil && p.UserID == speaker.UserID) {
			speaker.UserID = p.UserID
			speaker.DisplayName = p.DisplayName
			break
		}
	}
	return speaker
}
