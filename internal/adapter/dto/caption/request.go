package caption

// IngestUtteranceRequest is one speech-recognition event posted into a session
type IngestUtteranceRequest struct {
	ResultID              string       `json:"result_id" validate:"required,min=1,max=255"`
	IsPartial             bool         `json:"is_partial"`
	Text                  string       `json:"text" validate:"required,min=1"`
	SpeakerAttendeeID     string       `json:"speaker_attendee_id" validate:"required,min=1,max=255"`
	SpeakerExternalUserID string       `json:"speaker_external_user_id,omitempty" validate:"omitempty,uuid"`
	StartTimeMs           int64        `json:"start_time_ms" validate:"required,gt=0"`
	EndTimeMs             int64        `json:"end_time_ms" validate:"required,gt=0"`
	LanguageCode          string       `json:"language_code" validate:"required,min=2,max=20"`
	Confidence            float64      `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	IsStable              bool         `json:"is_stable,omitempty"`
	Words                 []WordTiming `json:"words,omitempty"`
}

// WordTiming mirrors per-word timing from the speech service
type WordTiming struct {
	Word       string  `json:"word"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SetLanguageRequest changes a participant's display language for the session
type SetLanguageRequest struct {
	TargetLanguage string `json:"target_language" validate:"required,min=2,max=20"`
}

// SetTranslationRequest toggles translation delivery for a participant
type SetTranslationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
