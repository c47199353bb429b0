package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// PreferenceRepository stores per-(session, user) language preferences.
// GetBatch exists so a single fan-out fetches every participant's preference
// in one round-trip rather than one query per participant.
type PreferenceRepository interface {
	Upsert(ctx context.Context, pref *entities.LanguagePreference) error
	Get(ctx context.Context, sessionID, userID uuid.UUID) (*entities.LanguagePreference, error)
	GetBatch(ctx context.Context, sessionID uuid.UUID, userIDs []uuid.UUID) ([]*entities.LanguagePreference, error)
}
