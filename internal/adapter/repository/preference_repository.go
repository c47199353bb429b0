package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
)

// preferenceRepository implements the PreferenceRepository interface
type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new language preference repository
func NewPreferenceRepository(db *gorm.DB) repositories.PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Upsert writes a participant's preference, replacing any existing row for
// the same (session_id, user_id)
func (r *preferenceRepository) Upsert(ctx context.Context, pref *entities.LanguagePreference) error {
	if pref == nil {
		return errors.New("preference cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"target_language", "translation_enabled", "updated_at",
			}),
		}).
		Create(pref).Error
}

// Get retrieves one participant's preference; nil when none is stored
func (r *preferenceRepository) Get(ctx context.Context, sessionID, userID uuid.UUID) (*entities.LanguagePreference, error) {
	var pref entities.LanguagePreference
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pref, nil
}

// GetBatch fetches preferences for a set of participants in one query, so a
// fan-out never does per-participant round-trips
func (r *preferenceRepository) GetBatch(ctx context.Context, sessionID uuid.UUID, userIDs []uuid.UUID) ([]*entities.LanguagePreference, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var prefs []*entities.LanguagePreference
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id IN ?", sessionID, userIDs).
		Find(&prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}
