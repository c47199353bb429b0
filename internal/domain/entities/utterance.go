package entities

import (
	"strings"
)

// Utterance is a speech-recognition result event for one recognized span.
// The same ResultID may arrive several times with IsPartial=true before
// exactly one terminal revision with IsPartial=false; only the terminal
// revision is ever buffered or persisted.
type Utterance struct {
	ResultID              string       `json:"result_id"`
	IsPartial             bool         `json:"is_partial"`
	Text                  string       `json:"text"`
	SpeakerAttendeeID     string       `json:"speaker_attendee_id"`
	SpeakerExternalUserID string       `json:"speaker_external_user_id,omitempty"`
	StartTimeMs           int64        `json:"start_time_ms"` // absolute epoch ms
	EndTimeMs             int64        `json:"end_time_ms"`   // absolute epoch ms
	LanguageCode          string       `json:"language_code"`
	Confidence            float64      `json:"confidence,omitempty"`
	IsStable              bool         `json:"is_stable,omitempty"`
	Words                 []WordTiming `json:"words,omitempty"`
}

// Validate checks the fields required before an utterance may enter the pipeline
func (u *Utterance) Validate() error {
	if strings.TrimSpace(u.ResultID) == "" {
		return ErrMissingResultID
	}
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyUtteranceText
	}
	if strings.TrimSpace(u.SpeakerAttendeeID) == "" {
		return ErrMissingSpeaker
	}
	if strings.TrimSpace(u.LanguageCode) == "" {
		return ErrMissingLanguageCode
	}
	if u.StartTimeMs <= 0 || u.EndTimeMs < u.StartTimeMs {
		return ErrInvalidUtteranceTiming
	}
	return nil
}

// IsFinal reports whether this is the terminal revision for its ResultID
func (u *Utterance) IsFinal() bool {
	return !u.IsPartial
}
