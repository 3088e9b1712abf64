package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type readiness interface {
	IsReady() bool
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           pinger
	cache        pinger
	cacheKind    string
	connection   readiness
	checkTimeout time.Duration
}

// NewHealthHandler builds the health handler. db and cache may be nil.
func NewHealthHandler(db pinger, cache pinger, cacheKind string, conn readiness) *HealthHandler {
	return &HealthHandler{
		db:           db,
		cache:        cache,
		cacheKind:    cacheKind,
		connection:   conn,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and component statuses.
// @Summary Health check
// @Description Returns overall status with history DB, cache and provider connection results
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "disabled"
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			dbStatus = "down"
			overallStatus = "degraded"
		} else {
			dbStatus = "up"
		}
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "down"
			overallStatus = "degraded"
		} else {
			cacheStatus = "up"
		}
	}

	connStatus := "ready"
	if !h.connection.IsReady() {
		connStatus = "not_ready"
		overallStatus = "down"
	}

	code := http.StatusOK
	if overallStatus == "down" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"cache": map[string]any{
				"status": cacheStatus,
				"kind":   h.cacheKind,
			},
			"connection": map[string]any{
				"status": connStatus,
			},
		},
	})
}
