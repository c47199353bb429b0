package entities

import (
	"time"

	"github.com/google/uuid"
)

// LanguagePreference is a participant's display-language choice for one
// session. Read-mostly; written only by explicit user action. A change never
// retranslates past utterances, it only affects future ones.
type LanguagePreference struct {
	ID                 uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID          uuid.UUID `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:idx_session_user,priority:1"`
	UserID             uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_session_user,priority:2"`
	TargetLanguage     string    `json:"target_language" gorm:"type:varchar(20);not null"`
	TranslationEnabled bool      `json:"translation_enabled" gorm:"default:true"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (LanguagePreference) TableName() string {
	return "language_preferences"
}

// NewLanguagePreference creates a preference with translation enabled
func NewLanguagePreference(sessionID, userID uuid.UUID, targetLanguage string) *LanguagePreference {
	return &LanguagePreference{
		ID:                 uuid.New(),
		SessionID:          sessionID,
		UserID:             userID,
		TargetLanguage:     targetLanguage,
		TranslationEnabled: true,
	}
}

// WantsTranslationFrom reports whether this participant needs a translated
// copy of an utterance spoken in sourceLanguage
func (p *LanguagePreference) WantsTranslationFrom(sourceLanguage string) bool {
	return p.TranslationEnabled && p.TargetLanguage != "" && p.TargetLanguage != sourceLanguage
}
