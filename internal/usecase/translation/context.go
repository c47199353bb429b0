package translation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
)

// ContextTracker owns the rolling per-(session, speaker) translation
// context. It is the only writer of SpeakerContext, which gives each speaker
// a single linear write path and removes lost-update races inside a session.
// Entries expire from the backing store after the TTL, so a long-silent
// speaker starts fresh.
type ContextTracker struct {
	store  *cache.MemoryStore
	window time.Duration // recency window for continuity
	ttl    time.Duration // hard expiry of stored context
	now    func() time.Time
}

// NewContextTracker creates a context tracker over the given TTL store
func NewContextTracker(store *cache.MemoryStore, window, ttl time.Duration) *ContextTracker {
	return &ContextTracker{
		store:  store,
		window: window,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the tracker's clock for deterministic tests
func (t *ContextTracker) WithClock(now func() time.Time) *ContextTracker {
	t.now = now
	return t
}

func contextKey(sessionID, speakerUserID uuid.UUID) string {
	return fmt.Sprintf("speaker_ctx:%s:%s", sessionID, speakerUserID)
}

// GetContext returns the speaker's current context, or nil when none exists
// or it has expired
func (t *ContextTracker) GetContext(sessionID, speakerUserID uuid.UUID) *entities.SpeakerContext {
	raw, ok := t.store.Get(contextKey(sessionID, speakerUserID))
	if !ok {
		return nil
	}
	var c entities.SpeakerContext
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}
	return &c
}

// IsContinuousSpeech reports whether the context exists and was refreshed
// within the recency window; a speaker silent past the window is treated as
// starting a new topic
func (t *ContextTracker) IsContinuousSpeech(c *entities.SpeakerContext) bool {
	return c.UpdatedWithin(t.window, t.now())
}

// UpdateContext records the speaker's latest original text and translation.
// Called after every translation attempt; a soft-failure records the
// original with an empty translation so the next utterance still sees what
// was said.
func (t *ContextTracker) UpdateContext(sessionID, speakerUserID uuid.UUID, originalText, translatedText string) {
	c := entities.SpeakerContext{
		SessionID:          sessionID,
		SpeakerUserID:      speakerUserID,
		LastOriginalText:   originalText,
		LastTranslatedText: translatedText,
		LastUpdatedAt:      t.now(),
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	t.store.Set(contextKey(sessionID, speakerUserID), string(raw), t.ttl)
}

// Clear drops a speaker's context, used on session teardown
func (t *ContextTracker) Clear(sessionID, speakerUserID uuid.UUID) {
	t.store.Delete(contextKey(sessionID, speakerUserID))
}
