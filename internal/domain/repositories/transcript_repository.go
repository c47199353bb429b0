package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// TranscriptRepository is the durable store for flushed transcripts.
// UpsertBatch must be keyed on (session_id, result_id) so that replaying the
// same buffered set resolves to "latest wins" instead of duplicate rows.
type TranscriptRepository interface {
	UpsertBatch(ctx context.Context, transcripts []*entities.SessionTranscript) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionTranscript, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}
