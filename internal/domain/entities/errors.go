package entities

import "errors"

// Domain errors
var (
	// Utterance errors
	ErrMissingResultID        = errors.New("utterance missing result id")
	ErrEmptyUtteranceText     = errors.New("utterance text is empty")
	ErrMissingSpeaker         = errors.New("utterance missing speaker attendee id")
	ErrMissingLanguageCode    = errors.New("utterance missing language code")
	ErrInvalidUtteranceTiming = errors.New("utterance has invalid start/end times")

	// Session errors
	ErrSessionEnded    = errors.New("session has ended")
	ErrSessionNotFound = errors.New("session not found")

	// Preference errors
	ErrPreferenceNotFound = errors.New("language preference not found")
	ErrInvalidLanguage    = errors.New("invalid language code")
)
