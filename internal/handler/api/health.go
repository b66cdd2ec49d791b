package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xlogger "Draks/pkg/logger"
)

// HealthChecker is anything with a pingable backing connection.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	logger *xlogger.Logger
	checks map[string]HealthChecker
}

func NewHealthHandler(logger *xlogger.Logger, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{logger: logger, checks: checks}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
}

func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, chk := range h.checks {
		if err := chk.Health(ctx); err != nil {
			h.logger.Warn("health check failed",
				xlogger.String("dependency", name), xlogger.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	return c.JSON(status, map[string]interface{}{
		"status":       http.StatusText(status),
		"dependencies": deps,
	})
}
