package entities

import (
	"github.com/google/uuid"
)

// Translation method tags carried on pushed captions for observability
const (
	TranslationMethodDirect       = "direct"
	TranslationMethodContextAware = "context-aware"
)

// TranslatedCaption is the payload pushed to a participant whose display
// language differs from the speaker's
type TranslatedCaption struct {
	SessionID          uuid.UUID `json:"session_id"`
	ResultID           string    `json:"result_id"`
	SpeakerUserID      uuid.UUID `json:"speaker_user_id"`
	SpeakerDisplayName string    `json:"speaker_display_name"`
	SourceLanguage     string    `json:"source_language"`
	TargetLanguage     string    `json:"target_language"`
	OriginalText       string    `json:"original_text"`
	TranslatedText     string    `json:"translated_text"`
	Method             string    `json:"method"`
	StartTimeMs        int64     `json:"start_time_ms"`
	EndTimeMs          int64     `json:"end_time_ms"`

	// Chunk ordering for overlong utterances split into natural units;
	// (ResultID, ChunkIndex) is the stable display order key.
	ChunkIndex int `json:"chunk_index"`
	ChunkTotal int `json:"chunk_total"`
}

// SessionParticipant is a live roster entry for a session
type SessionParticipant struct {
	UserID      uuid.UUID `json:"user_id"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
}
