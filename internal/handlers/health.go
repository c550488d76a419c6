package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"recipeshorts/internal/version"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type counter interface {
	Len() int
}

// HealthHandler reports liveness and the state of the archive database.
type HealthHandler struct {
	db       pinger
	sessions counter
}

// NewHealthHandler accepts a nil db when the archive is disabled.
func NewHealthHandler(db pinger, sessions counter) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

func (h *HealthHandler) Health(c echo.Context) error {
	body := map[string]any{
		"status":  "ok",
		"version": version.Version,
	}
	if h.sessions != nil {
		body["active_sessions"] = h.sessions.Len()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "ok"
	}
	return c.JSON(http.StatusOK, body)
}
