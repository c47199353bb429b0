package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/pkg/config"
)

// Ingestor accepts recognized utterances for one session
type Ingestor interface {
	Ingest(ctx context.Context, sessionID uuid.UUID, u *entities.Utterance) error
}

// SessionStream bridges one AssemblyAI realtime connection to the transcript
// pipeline. Recognition timestamps are session-relative milliseconds; the
// stream converts them to epoch milliseconds using the connect time as anchor.
type SessionStream struct {
	client    *aai.RealTimeClient
	ingestor  Ingestor
	sessionID uuid.UUID
	attendee  string
	userID    string
	language  string
	logger    *zap.Logger

	mu       sync.Mutex
	anchorMs int64
	closed   bool
}

// StreamOptions identifies the speaker behind one audio stream
type StreamOptions struct {
	SessionID  uuid.UUID
	AttendeeID string
	// ExternalUserID is the platform user identity, when known
	ExternalUserID string
	// LanguageCode is the spoken language reported with every utterance
	LanguageCode string
}

// NewSessionStream builds a realtime transcriber for one speaker's audio.
// Call Connect before sending audio and Close when the speaker leaves.
func NewSessionStream(cfg *config.AssemblyAIConfig, opts StreamOptions, ingestor Ingestor, logger *zap.Logger) (*SessionStream, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("assemblyai api key is required")
	}
	if opts.LanguageCode == "" {
		opts.LanguageCode = "ko"
	}

	s := &SessionStream{
		ingestor:  ingestor,
		sessionID: opts.SessionID,
		attendee:  opts.AttendeeID,
		userID:    opts.ExternalUserID,
		language:  opts.LanguageCode,
		logger:    logger,
	}

	transcriber := &aai.RealTimeTranscriber{
		OnSessionBegins: func(event aai.SessionBegins) {
			logger.Info("stt session started",
				zap.String("session_id", opts.SessionID.String()),
				zap.String("attendee_id", opts.AttendeeID),
			)
		},
		OnPartialTranscript: func(event aai.PartialTranscript) {
			s.emit(event.Text, event.AudioStart, event.AudioEnd, event.Confidence, true)
		},
		OnFinalTranscript: func(event aai.FinalTranscript) {
			s.emit(event.Text, event.AudioStart, event.AudioEnd, event.Confidence, false)
		},
		OnSessionTerminated: func(event aai.SessionTerminated) {
			logger.Info("stt session terminated",
				zap.String("session_id", opts.SessionID.String()),
				zap.String("attendee_id", opts.AttendeeID),
			)
		},
		OnError: func(err error) {
			logger.Error("stt stream error",
				zap.String("session_id", opts.SessionID.String()),
				zap.String("attendee_id", opts.AttendeeID),
				zap.Error(err),
			)
		},
	}

	s.client = aai.NewRealTimeClientWithOptions(
		aai.WithRealTimeAPIKey(cfg.APIKey),
		aai.WithRealTimeSampleRate(cfg.SampleRate),
		aai.WithRealTimeTranscriber(transcriber),
	)

	return s, nil
}

// Connect opens the realtime websocket and anchors the timestamp conversion
func (s *SessionStream) Connect(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect realtime stream: %w", err)
	}
	s.mu.Lock()
	s.anchorMs = time.Now().UnixMilli()
	s.mu.Unlock()
	return nil
}

// Send forwards raw PCM audio to the recognizer
func (s *SessionStream) Send(ctx context.Context, samples []byte) error {
	return s.client.Send(ctx, samples)
}

// Close terminates the stream, waiting for the final transcript
func (s *SessionStream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.client.Disconnect(ctx, true)
}

// emit converts one recognition event into an utterance and hands it to the
// pipeline. Partials share the final's result id (keyed by segment start), so
// the suppression rule applies across revisions of the same span.
func (s *SessionStream) emit(text string, audioStartMs, audioEndMs int64, confidence float64, partial bool) {
	if text == "" {
		return
	}

	s.mu.Lock()
	anchor := s.anchorMs
	s.mu.Unlock()
	if anchor == 0 {
		return
	}

	u := &entities.Utterance{
		ResultID:              fmt.Sprintf("%s-%s-%d", s.sessionID, s.attendee, audioStartMs),
		IsPartial:             partial,
		Text:                  text,
		SpeakerAttendeeID:     s.attendee,
		SpeakerExternalUserID: s.userID,
		StartTimeMs:           anchor + audioStartMs,
		EndTimeMs:             anchor + audioEndMs,
		LanguageCode:          s.language,
		Confidence:            confidence,
		IsStable:              !partial,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ingestor.Ingest(ctx, s.sessionID, u); err != nil {
		s.logger.Warn("dropped recognition event",
			zap.String("session_id", s.sessionID.String()),
			zap.String("result_id", u.ResultID),
			zap.Error(err),
		)
	}
}
