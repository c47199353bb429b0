package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
)

// RequireSessionParticipant middleware: only allow preference writes for a
// user who is currently in the session roster. Roster lookups that fail are
// let through; gating is best-effort and the preference write is harmless on
// its own.
func RequireSessionParticipant(roster repositories.Roster) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, err := uuid.Parse(c.Param("id"))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]interface{}{
					"error":   "invalid_session_id",
					"message": "session ID must be a valid UUID",
				})
			}
			userID, err := uuid.Parse(c.Param("userId"))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]interface{}{
					"error":   "invalid_user_id",
					"message": "user ID must be a valid UUID",
				})
			}

			participants, err := roster.ListParticipants(c.Request().Context(), sessionID)
			if err != nil {
				return next(c)
			}
			for _, p := range participants {
				if p.UserID == userID {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"error":   "not_participant",
				"message": "user is not a participant in this session",
			})
		}
	}
}
