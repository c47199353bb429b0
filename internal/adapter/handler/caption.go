package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/errors"
	"github.com/eum-live/caption-pipeline/internal/adapter/dto/caption"
	"github.com/eum-live/caption-pipeline/internal/adapter/presenter"
	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
	"github.com/eum-live/caption-pipeline/internal/usecase/transcript"
)

// Caption handles the transcript pipeline's HTTP surface
type Caption struct {
	service transcript.Service
	prefs   repositories.PreferenceRepository
	logger  *zap.Logger
}

// NewCaptionHandler creates a new caption handler
func NewCaptionHandler(service transcript.Service, prefs repositories.PreferenceRepository, logger *zap.Logger) *Caption {
	return &Caption{
		service: service,
		prefs:   prefs,
		logger:  logger,
	}
}

// IngestUtterance handles POST /sessions/:id/utterances
func (h *Caption) IngestUtterance(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	var req caption.IngestUtteranceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	u := &entities.Utterance{
		ResultID:              req.ResultID,
		IsPartial:             req.IsPartial,
		Text:                  req.Text,
		SpeakerAttendeeID:     req.SpeakerAttendeeID,
		SpeakerExternalUserID: req.SpeakerExternalUserID,
		StartTimeMs:           req.StartTimeMs,
		EndTimeMs:             req.EndTimeMs,
		LanguageCode:          req.LanguageCode,
		Confidence:            req.Confidence,
		IsStable:              req.IsStable,
	}
	for _, w := range req.Words {
		u.Words = append(u.Words, entities.WordTiming{
			Word:       w.Word,
			StartMs:    w.StartMs,
			EndMs:      w.EndMs,
			Confidence: w.Confidence,
		})
	}

	if err := h.service.Ingest(c.Request().Context(), sessionID, u); err != nil {
		return HandleError(h.logger, c, errors.ErrMalformedUtterance(err.Error()))
	}

	return c.JSON(http.StatusAccepted, &caption.IngestResponse{
		Accepted: true,
		ResultID: req.ResultID,
	})
}

// GetTranscripts handles GET /sessions/:id/transcripts
func (h *Caption) GetTranscripts(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	transcripts, err := h.service.GetFinalTranscripts(c.Request().Context(), sessionID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("list transcripts", err))
	}

	return HandleSuccess(h.logger, c, presenter.ToTranscriptListResponse(sessionID, transcripts))
}

// FlushBuffer handles POST /sessions/:id/flush
func (h *Caption) FlushBuffer(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	count, err := h.service.Flush(c.Request().Context(), sessionID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrBufferFlushFailed(sessionID.String(), err))
	}

	return HandleSuccess(h.logger, c, &caption.FlushResponse{
		SessionID: sessionID,
		Flushed:   count,
	})
}

// EndSession handles POST /sessions/:id/end. A flush that still fails after
// the retry is reported but never blocks teardown.
func (h *Caption) EndSession(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	count, err := h.service.FlushOnSessionEnd(c.Request().Context(), sessionID)
	if err != nil {
		return HandleSuccess(h.logger, c, &caption.SessionEndResponse{
			SessionID: sessionID,
			Flushed:   0,
			Recovered: true,
			Message:   "final flush failed; buffered transcripts were not persisted",
		})
	}

	return HandleSuccess(h.logger, c, &caption.SessionEndResponse{
		SessionID: sessionID,
		Flushed:   count,
	})
}

// GetBufferStatus handles GET /sessions/:id/buffer
func (h *Caption) GetBufferStatus(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	status := h.service.BufferStatus(sessionID)
	return HandleSuccess(h.logger, c, &caption.BufferStatusResponse{
		SessionID:            sessionID,
		BufferSize:           status.BufferSize,
		LastFlushTime:        status.LastFlushTime,
		TimeSinceLastFlushMs: status.TimeSinceLastFlush.Milliseconds(),
	})
}

// SetLanguage handles PUT /sessions/:id/participants/:userId/language
func (h *Caption) SetLanguage(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}
	userID, err := h.userID(c)
	if err != nil {
		return err
	}

	var req caption.SetLanguageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	pref, err := h.prefs.Get(c.Request().Context(), sessionID, userID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("get preference", err))
	}
	if pref == nil {
		pref = entities.NewLanguagePreference(sessionID, userID, req.TargetLanguage)
	} else {
		pref.TargetLanguage = req.TargetLanguage
	}

	if err := h.prefs.Upsert(c.Request().Context(), pref); err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("upsert preference", err))
	}

	return HandleSuccess(h.logger, c, presenter.ToPreferenceResponse(pref))
}

// SetTranslation handles PUT /sessions/:id/participants/:userId/translation
func (h *Caption) SetTranslation(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}
	userID, err := h.userID(c)
	if err != nil {
		return err
	}

	var req caption.SetTranslationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	pref, err := h.prefs.Get(c.Request().Context(), sessionID, userID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("get preference", err))
	}
	if pref == nil {
		return HandleError(h.logger, c, errors.ErrNotFound("language preference"))
	}
	pref.TranslationEnabled = *req.Enabled

	if err := h.prefs.Upsert(c.Request().Context(), pref); err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("upsert preference", err))
	}

	return HandleSuccess(h.logger, c, presenter.ToPreferenceResponse(pref))
}

// GetPreference handles GET /sessions/:id/participants/:userId/language
func (h *Caption) GetPreference(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}
	userID, err := h.userID(c)
	if err != nil {
		return err
	}

	pref, err := h.prefs.Get(c.Request().Context(), sessionID, userID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("get preference", err))
	}
	if pref == nil {
		return HandleError(h.logger, c, errors.ErrNotFound("language preference"))
	}

	return HandleSuccess(h.logger, c, presenter.ToPreferenceResponse(pref))
}

func (h *Caption) sessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "session id must be a UUID")
	}
	return id, nil
}

func (h *Caption) userID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "user id must be a UUID")
	}
	return id, nil
}
