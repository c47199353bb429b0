package caption

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptResponse is one durable transcript entry
type TranscriptResponse struct {
	ID                 uuid.UUID    `json:"id"`
	SessionID          uuid.UUID    `json:"session_id"`
	ResultID           string       `json:"result_id"`
	SpeakerUserID      uuid.UUID    `json:"speaker_user_id,omitempty"`
	SpeakerAttendeeID  string       `json:"speaker_attendee_id"`
	SpeakerDisplayName string       `json:"speaker_display_name"`
	Text               string       `json:"text"`
	LanguageCode       string       `json:"language_code"`
	StartTimeMs        int64        `json:"start_time_ms"`
	EndTimeMs          int64        `json:"end_time_ms"`
	Confidence         float64      `json:"confidence,omitempty"`
	Words              []WordTiming `json:"words,omitempty"`
}

// TranscriptListResponse is the merged session transcript
type TranscriptListResponse struct {
	SessionID   uuid.UUID             `json:"session_id"`
	Transcripts []*TranscriptResponse `json:"transcripts"`
	Count       int                   `json:"count"`
}

// IngestResponse acknowledges an accepted utterance
type IngestResponse struct {
	Accepted bool   `json:"accepted"`
	ResultID string `json:"result_id"`
}

// FlushResponse reports a forced flush
type FlushResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Flushed   int       `json:"flushed"`
}

// SessionEndResponse reports the final flush at session teardown
type SessionEndResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Flushed   int       `json:"flushed"`
	Recovered bool      `json:"recovered,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// BufferStatusResponse is the buffer observability snapshot
type BufferStatusResponse struct {
	SessionID            uuid.UUID `json:"session_id"`
	BufferSize           int       `json:"buffer_size"`
	LastFlushTime        time.Time `json:"last_flush_time"`
	TimeSinceLastFlushMs int64     `json:"time_since_last_flush_ms"`
}

// PreferenceResponse is a participant's stored language preference
type PreferenceResponse struct {
	SessionID          uuid.UUID `json:"session_id"`
	UserID             uuid.UUID `json:"user_id"`
	TargetLanguage     string    `json:"target_language"`
	TranslationEnabled bool      `json:"translation_enabled"`
	UpdatedAt          time.Time `json:"updated_at"`
}
