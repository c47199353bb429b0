package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eum-live/caption-pipeline/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	captionHandler *Caption
	participantMW  echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, captionHandler *Caption, participantMW echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:            cfg,
		captionHandler: captionHandler,
		participantMW:  participantMW,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupSessionRoutes(v1)
}

// setupSessionRoutes configures the transcript pipeline routes
func (rt *Router) setupSessionRoutes(g *echo.Group) {
	sessions := g.Group("/sessions/:id")

	if rt.captionHandler != nil {
		sessions.POST("/utterances", rt.captionHandler.IngestUtterance)
		sessions.GET("/transcripts", rt.captionHandler.GetTranscripts)
		sessions.POST("/flush", rt.captionHandler.FlushBuffer)
		sessions.POST("/end", rt.captionHandler.EndSession)
		sessions.GET("/buffer", rt.captionHandler.GetBufferStatus)
		sessions.GET("/participants/:userId/language", rt.captionHandler.GetPreference)

		// Preference writes are gated on the live roster
		writeMW := []echo.MiddlewareFunc{}
		if rt.participantMW != nil {
			writeMW = append(writeMW, rt.participantMW)
		}
		sessions.PUT("/participants/:userId/language", rt.captionHandler.SetLanguage, writeMW...)
		sessions.PUT("/participants/:userId/translation", rt.captionHandler.SetTranslation, writeMW...)
	} else {
		sessions.POST("/utterances", rt.notImplemented)
		sessions.GET("/transcripts", rt.notImplemented)
		sessions.POST("/flush", rt.notImplemented)
		sessions.POST("/end", rt.notImplemented)
		sessions.GET("/buffer", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	env := "production"
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": env,
	})
}
