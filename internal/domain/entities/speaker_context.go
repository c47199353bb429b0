package entities

import (
	"time"

	"github.com/google/uuid"
)

// SpeakerContext is the rolling per-(session, speaker) translation context:
// the most recent original text and its translation. It drives the decision
// between direct and context-aware translation for the speaker's next
// utterance. Owned and mutated exclusively by the context tracker.
type SpeakerContext struct {
	SessionID          uuid.UUID `json:"session_id"`
	SpeakerUserID      uuid.UUID `json:"speaker_user_id"`
	LastOriginalText   string    `json:"last_original_text"`
	LastTranslatedText string    `json:"last_translated_text,omitempty"`
	LastUpdatedAt      time.Time `json:"last_updated_at"`
}

// UpdatedWithin reports whether the context was refreshed inside the recency
// window ending at now. A speaker silent past the window starts fresh.
func (c *SpeakerContext) UpdatedWithin(window time.Duration, now time.Time) bool {
	if c == nil {
		return false
	}
	return now.Sub(c.LastUpdatedAt) <= window
}
