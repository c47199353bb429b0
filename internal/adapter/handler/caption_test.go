package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/usecase/transcript"
	pkgvalidator "github.com/eum-live/caption-pipeline/pkg/validator"
)

// fakeService records ingested utterances
type fakeService struct {
	ingested []*entities.Utterance
	flushed  int
}

func (s *fakeService) Ingest(_ context.Context, _ uuid.UUID, u *entities.Utterance) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.ingested = append(s.ingested, u)
	return nil
}

func (s *fakeService) GetFinalTranscripts(_ context.Context, _ uuid.UUID) ([]*entities.SessionTranscript, error) {
	return nil, nil
}

func (s *fakeService) Flush(_ context.Context, _ uuid.UUID) (int, error) {
	return s.flushed, nil
}

func (s *fakeService) FlushOnSessionEnd(_ context.Context, _ uuid.UUID) (int, error) {
	return s.flushed, nil
}

func (s *fakeService) BufferStatus(_ uuid.UUID) transcript.BufferStatus {
	return transcript.BufferStatus{BufferSize: len(s.ingested)}
}

type fakePrefRepo struct {
	prefs map[uuid.UUID]*entities.LanguagePreference
}

func (r *fakePrefRepo) Upsert(_ context.Context, pref *entities.LanguagePreference) error {
	r.prefs[pref.UserID] = pref
	return nil
}

func (r *fakePrefRepo) Get(_ context.Context, _, userID uuid.UUID) (*entities.LanguagePreference, error) {
	return r.prefs[userID], nil
}

func (r *fakePrefRepo) GetBatch(_ context.Context, _ uuid.UUID, _ []uuid.UUID) ([]*entities.LanguagePreference, error) {
	return nil, nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	return e
}

func ingestBody(resultID string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"result_id":           resultID,
		"text":                "오늘 회의를 시작하겠습니다.",
		"speaker_attendee_id": "attendee-1",
		"start_time_ms":       1000,
		"end_time_ms":         2000,
		"language_code":       "ko",
	})
	return string(body)
}

func TestIngestUtteranceAccepted(t *testing.T) {
	e := newTestEcho()
	svc := &fakeService{}
	h := NewCaptionHandler(svc, &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{}}, nil)

	sessionID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(ingestBody("r1")))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/utterances")
	c.SetParamNames("id")
	c.SetParamValues(sessionID.String())

	if err := h.IngestUtterance(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", rec.Code)
	}
	if len(svc.ingested) != 1 || svc.ingested[0].ResultID != "r1" {
		t.Fatalf("service not called correctly: %+v", svc.ingested)
	}
}

func TestIngestUtteranceValidation(t *testing.T) {
	e := newTestEcho()
	svc := &fakeService{}
	h := NewCaptionHandler(svc, &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{}}, nil)

	// Missing text fails request validation before the service is touched
	body := `{"result_id":"r1","speaker_attendee_id":"a","start_time_ms":1000,"end_time_ms":2000,"language_code":"ko"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/utterances")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.IngestUtterance(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if len(svc.ingested) != 0 {
		t.Fatal("invalid request must not reach the service")
	}
}

func TestIngestUtteranceBadSessionID(t *testing.T) {
	e := newTestEcho()
	h := NewCaptionHandler(&fakeService{}, &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(ingestBody("r1")))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/utterances")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.IngestUtterance(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestSetLanguageCreatesPreference(t *testing.T) {
	e := newTestEcho()
	prefRepo := &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{}}
	h := NewCaptionHandler(&fakeService{}, prefRepo, nil)

	sessionID, userID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"target_language":"en"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/participants/:userId/language")
	c.SetParamNames("id", "userId")
	c.SetParamValues(sessionID.String(), userID.String())

	if err := h.SetLanguage(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	stored := prefRepo.prefs[userID]
	if stored == nil || stored.TargetLanguage != "en" || !stored.TranslationEnabled {
		t.Fatalf("preference not stored: %+v", stored)
	}
}

func TestSetTranslationTogglesExisting(t *testing.T) {
	e := newTestEcho()
	sessionID, userID := uuid.New(), uuid.New()
	prefRepo := &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{
		userID: entities.NewLanguagePreference(sessionID, userID, "en"),
	}}
	h := NewCaptionHandler(&fakeService{}, prefRepo, nil)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"enabled":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/participants/:userId/translation")
	c.SetParamNames("id", "userId")
	c.SetParamValues(sessionID.String(), userID.String())

	if err := h.SetTranslation(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if prefRepo.prefs[userID].TranslationEnabled {
		t.Fatal("translation not disabled")
	}
}

func TestGetBufferStatus(t *testing.T) {
	e := newTestEcho()
	svc := &fakeService{ingested: []*entities.Utterance{{ResultID: "r1"}}}
	h := NewCaptionHandler(svc, &fakePrefRepo{prefs: map[uuid.UUID]*entities.LanguagePreference{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/buffer")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.GetBufferStatus(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"buffer_size":1`) {
		t.Fatalf("missing buffer size in %s", rec.Body.String())
	}
}
