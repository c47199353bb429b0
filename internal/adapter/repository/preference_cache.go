package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
)

// cachedPreferenceRepository decorates a PreferenceRepository with a
// short-TTL in-process cache. Fan-out reads every participant's preference on
// every finalized utterance; the cache keeps that off the database while a
// write-through Upsert bounds staleness after a preference change.
type cachedPreferenceRepository struct {
	inner repositories.PreferenceRepository
	store *cache.MemoryStore
	ttl   time.Duration
}

// NewCachedPreferenceRepository wraps repo with per-session read caching
func NewCachedPreferenceRepository(repo repositories.PreferenceRepository, store *cache.MemoryStore, ttl time.Duration) repositories.PreferenceRepository {
	return &cachedPreferenceRepository{
		inner: repo,
		store: store,
		ttl:   ttl,
	}
}

func (r *cachedPreferenceRepository) Upsert(ctx context.Context, pref *entities.LanguagePreference) error {
	if err := r.inner.Upsert(ctx, pref); err != nil {
		return err
	}
	if pref != nil {
		r.store.Set(prefKey(pref.SessionID, pref.UserID), encodePref(pref), r.ttl)
	}
	return nil
}

func (r *cachedPreferenceRepository) Get(ctx context.Context, sessionID, userID uuid.UUID) (*entities.LanguagePreference, error) {
	if raw, ok := r.store.Get(prefKey(sessionID, userID)); ok {
		if pref, err := decodePref(raw); err == nil {
			return pref, nil
		}
	}

	pref, err := r.inner.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if pref != nil {
		r.store.Set(prefKey(sessionID, userID), encodePref(pref), r.ttl)
	}
	return pref, nil
}

// GetBatch serves each participant from cache when possible and fetches the
// misses in a single query
func (r *cachedPreferenceRepository) GetBatch(ctx context.Context, sessionID uuid.UUID, userIDs []uuid.UUID) ([]*entities.LanguagePreference, error) {
	result := make([]*entities.LanguagePreference, 0, len(userIDs))
	misses := make([]uuid.UUID, 0, len(userIDs))
	for _, userID := range userIDs {
		raw, ok := r.store.Get(prefKey(sessionID, userID))
		if !ok {
			misses = append(misses, userID)
			continue
		}
		pref, err := decodePref(raw)
		if err != nil {
			misses = append(misses, userID)
			continue
		}
		if pref != nil {
			result = append(result, pref)
		}
	}

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := r.inner.GetBatch(ctx, sessionID, misses)
	if err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]struct{}, len(fetched))
	for _, pref := range fetched {
		found[pref.UserID] = struct{}{}
		r.store.Set(prefKey(sessionID, pref.UserID), encodePref(pref), r.ttl)
		result = append(result, pref)
	}
	// Cache absences too, so participants without a stored preference do not
	// trigger a query per utterance.
	for _, userID := range misses {
		if _, ok := found[userID]; !ok {
			r.store.Set(prefKey(sessionID, userID), "null", r.ttl)
		}
	}

	return result, nil
}

func prefKey(sessionID, userID uuid.UUID) string {
	return fmt.Sprintf("pref:%s:%s", sessionID, userID)
}

func encodePref(pref *entities.LanguagePreference) string {
	raw, err := json.Marshal(pref)
	if err != nil {
		return "null"
	}
	return string(raw)
}

func decodePref(raw string) (*entities.LanguagePreference, error) {
	var pref *entities.LanguagePreference
	if err := json.Unmarshal([]byte(raw), &pref); err != nil {
		return nil, err
	}
	return pref, nil
}
