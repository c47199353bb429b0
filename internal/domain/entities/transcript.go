package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WordTiming is per-word timing carried through from the speech service
type WordTiming struct {
	Word       string  `json:"word"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SessionTranscript is the durable record for one final utterance.
// Unique on (session_id, result_id): flushes are upserts, so replayed
// buffer entries never create duplicate rows.
type SessionTranscript struct {
	ID                 uuid.UUID                       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID          uuid.UUID                       `json:"session_id" gorm:"type:uuid;not null;index:idx_session_start,priority:1;uniqueIndex:idx_session_result,priority:1"`
	ResultID           string                          `json:"result_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_session_result,priority:2"`
	SpeakerUserID      uuid.UUID                       `json:"speaker_user_id" gorm:"type:uuid;index"`
	SpeakerAttendeeID  string                          `json:"speaker_attendee_id" gorm:"type:varchar(255)"`
	SpeakerDisplayName string                          `json:"speaker_display_name" gorm:"type:varchar(255)"`
	Text               string                          `json:"text" gorm:"type:text;not null"`
	LanguageCode       string                          `json:"language_code" gorm:"type:varchar(20)"`
	StartTimeMs        int64                           `json:"start_time_ms" gorm:"not null;index:idx_session_start,priority:2"`
	EndTimeMs          int64                           `json:"end_time_ms" gorm:"not null"`
	Confidence         float64                         `json:"confidence,omitempty" gorm:"default:0.0"`
	Words              datatypes.JSONSlice[WordTiming] `json:"words,omitempty" gorm:"type:jsonb"`
	CreatedAt          time.Time                       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time                       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SessionTranscript) TableName() string {
	return "session_transcripts"
}

// NewSessionTranscript builds a durable record from a final utterance and
// the speaker identity resolved at buffering time
func NewSessionTranscript(sessionID uuid.UUID, u *Utterance, speaker Speaker) *SessionTranscript {
	return &SessionTranscript{
		ID:                 uuid.New(),
		SessionID:          sessionID,
		ResultID:           u.ResultID,
		SpeakerUserID:      speaker.UserID,
		SpeakerAttendeeID:  u.SpeakerAttendeeID,
		SpeakerDisplayName: speaker.DisplayName,
		Text:               u.Text,
		LanguageCode:       u.LanguageCode,
		StartTimeMs:        u.StartTimeMs,
		EndTimeMs:          u.EndTimeMs,
		Confidence:         u.Confidence,
		Words:              datatypes.NewJSONSlice(u.Words),
	}
}

// Speaker is the participant identity resolved once at buffering time, so a
// later departure from the session does not lose attribution
type Speaker struct {
	UserID      uuid.UUID `json:"user_id"`
	AttendeeID  string    `json:"attendee_id"`
	DisplayName string    `json:"display_name"`
}
