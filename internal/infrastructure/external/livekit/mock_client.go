package livekit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// MockClient is an in-memory stand-in for local development and tests
type MockClient struct {
	mu           sync.Mutex
	participants map[uuid.UUID][]*entities.SessionParticipant
	sent         map[uuid.UUID][][]byte // keyed by userID
}

// NewMockClient creates an empty mock client
func NewMockClient() *MockClient {
	return &MockClient{
		participants: make(map[uuid.UUID][]*entities.SessionParticipant),
		sent:         make(map[uuid.UUID][][]byte),
	}
}

// AddParticipant registers a participant in a session's mock roster
func (m *MockClient) AddParticipant(sessionID uuid.UUID, p *entities.SessionParticipant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[sessionID] = append(m.participants[sessionID], p)
}

// SendToUser records the payload instead of sending it
func (m *MockClient) SendToUser(_ context.Context, _ uuid.UUID, userID uuid.UUID, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.sent[userID] = append(m.sent[userID], buf)
	return nil
}

// ListParticipants returns the mock roster
func (m *MockClient) ListParticipants(_ context.Context, sessionID uuid.UUID) ([]*entities.SessionParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.SessionParticipant(nil), m.participants[sessionID]...), nil
}

// SentTo returns the payloads recorded for a user
func (m *MockClient) SentTo(userID uuid.UUID) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.sent[userID]...)
}
