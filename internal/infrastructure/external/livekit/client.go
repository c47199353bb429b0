package livekit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	livekit "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// Client wraps the LiveKit operations the pipeline needs: the data channel
// as the real-time caption push path, and the room roster as the session
// participant source. Participants join rooms with their user ID as the
// LiveKit identity.
type Client interface {
	SendToUser(ctx context.Context, sessionID, userID uuid.UUID, payload []byte) error
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionParticipant, error)
}

// realClient is the real LiveKit client implementation
type realClient struct {
	roomClient *lksdk.RoomServiceClient
}

// NewClient creates a new LiveKit client
func NewClient(url, apiKey, apiSecret string, useMock bool) Client {
	if useMock {
		return NewMockClient()
	}
	return &realClient{
		roomClient: lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
	}
}

// SendToUser pushes a payload to one participant over the reliable data
// channel. Fire-and-forget for correctness; the error only feeds retries
// and logs.
func (c *realClient) SendToUser(ctx context.Context, sessionID, userID uuid.UUID, payload []byte) error {
	_, err := c.roomClient.SendData(ctx, &livekit.SendDataRequest{
		Room:                  sessionID.String(),
		Data:                  payload,
		Kind:                  livekit.DataPacket_RELIABLE,
		DestinationIdentities: []string{userID.String()},
	})
	if err != nil {
		return fmt.Errorf("failed to send data to participant: %w", err)
	}
	return nil
}

// ListParticipants returns the current roster of a session's room
func (c *realClient) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionParticipant, error) {
	res, err := c.roomClient.ListParticipants(ctx, &livekit.ListParticipantsRequest{
		Room: sessionID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]*entities.SessionParticipant, 0, len(res.Participants))
	for _, p := range res.Participants {
		userID, err := uuid.Parse(p.Identity)
		if err != nil {
			// Non-user identities (recorders, agents) are not caption targets.
			continue
		}
		participants = append(participants, &entities.SessionParticipant{
			UserID:      userID,
			Identity:    p.Identity,
			DisplayName: p.Name,
		})
	}
	return participants, nil
}
