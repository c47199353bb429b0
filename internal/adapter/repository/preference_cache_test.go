package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
)

// fakePrefStore counts queries against the underlying store
type fakePrefStore struct {
	prefs       map[uuid.UUID]*entities.LanguagePreference
	getCalls    int
	batchCalls  int
	upsertCalls int
}

func newFakePrefStore() *fakePrefStore {
	return &fakePrefStore{prefs: make(map[uuid.UUID]*entities.LanguagePreference)}
}

func (s *fakePrefStore) Upsert(_ context.Context, pref *entities.LanguagePreference) error {
	s.upsertCalls++
	s.prefs[pref.UserID] = pref
	return nil
}

func (s *fakePrefStore) Get(_ context.Context, _, userID uuid.UUID) (*entities.LanguagePreference, error) {
	s.getCalls++
	return s.prefs[userID], nil
}

func (s *fakePrefStore) GetBatch(_ context.Context, _ uuid.UUID, userIDs []uuid.UUID) ([]*entities.LanguagePreference, error) {
	s.batchCalls++
	var out []*entities.LanguagePreference
	for _, id := range userIDs {
		if pref, ok := s.prefs[id]; ok {
			out = append(out, pref)
		}
	}
	return out, nil
}

func TestCachedPreferenceGet(t *testing.T) {
	inner := newFakePrefStore()
	sessionID, userID := uuid.New(), uuid.New()
	inner.prefs[userID] = entities.NewLanguagePreference(sessionID, userID, "en")

	repo := NewCachedPreferenceRepository(inner, cache.NewMemoryStoreWithClock(time.Now), time.Minute)

	for i := 0; i < 3; i++ {
		pref, err := repo.Get(context.Background(), sessionID, userID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if pref == nil || pref.TargetLanguage != "en" {
			t.Fatalf("unexpected preference %+v", pref)
		}
	}
	if inner.getCalls != 1 {
		t.Fatalf("store queried %d times, want 1", inner.getCalls)
	}
}

func TestCachedPreferenceGetBatchServesMissesOnce(t *testing.T) {
	inner := newFakePrefStore()
	sessionID := uuid.New()
	withPref, withoutPref := uuid.New(), uuid.New()
	inner.prefs[withPref] = entities.NewLanguagePreference(sessionID, withPref, "ja")

	repo := NewCachedPreferenceRepository(inner, cache.NewMemoryStoreWithClock(time.Now), time.Minute)

	for i := 0; i < 3; i++ {
		prefs, err := repo.GetBatch(context.Background(), sessionID, []uuid.UUID{withPref, withoutPref})
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}
		if len(prefs) != 1 || prefs[0].UserID != withPref {
			t.Fatalf("unexpected batch result %+v", prefs)
		}
	}
	// One query fills the cache, including the negative entry
	if inner.batchCalls != 1 {
		t.Fatalf("store queried %d times, want 1", inner.batchCalls)
	}
}

func TestCachedPreferenceUpsertWritesThrough(t *testing.T) {
	inner := newFakePrefStore()
	sessionID, userID := uuid.New(), uuid.New()

	repo := NewCachedPreferenceRepository(inner, cache.NewMemoryStoreWithClock(time.Now), time.Minute)

	pref := entities.NewLanguagePreference(sessionID, userID, "en")
	if err := repo.Upsert(context.Background(), pref); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	pref.TargetLanguage = "ja"
	if err := repo.Upsert(context.Background(), pref); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := repo.Get(context.Background(), sessionID, userID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.TargetLanguage != "ja" {
		t.Fatalf("stale cache after upsert: %q", got.TargetLanguage)
	}
	// The write-through entry serves the read
	if inner.getCalls != 0 {
		t.Fatalf("read hit the store %d times after write-through", inner.getCalls)
	}
}
