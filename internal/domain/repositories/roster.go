package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// Roster is the session participant source. Implemented against the media
// server; the pipeline only reads from it.
type Roster interface {
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionParticipant, error)
}
