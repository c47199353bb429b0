package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
)

// transcriptRepository implements the TranscriptRepository interface
type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *gorm.DB) repositories.TranscriptRepository {
	return &transcriptRepository{db: db}
}

// UpsertBatch persists a flushed batch with upsert-on-conflict semantics on
// (session_id, result_id). A replayed batch resolves to "latest wins"; a
// duplicate-key conflict is the expected outcome, never an error.
func (r *transcriptRepository) UpsertBatch(ctx context.Context, transcripts []*entities.SessionTranscript) error {
	if len(transcripts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "result_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"text", "language_code", "start_time_ms", "end_time_ms",
				"confidence", "words", "speaker_user_id", "speaker_attendee_id",
				"speaker_display_name", "updated_at",
			}),
		}).
		Create(&transcripts).Error
}

// ListBySession returns all persisted transcripts for a session ordered by
// start time, with result_id as the stable tiebreaker
func (r *transcriptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionTranscript, error) {
	var transcripts []*entities.SessionTranscript
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("start_time_ms ASC, result_id ASC").
		Find(&transcripts).Error
	if err != nil {
		return nil, err
	}
	return transcripts, nil
}

// CountBySession counts persisted transcripts for a session
func (r *transcriptRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.SessionTranscript{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
