package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"Draks/internal/service/feature"
	xhttp "Draks/pkg/http"
)

// Router composes the API handlers into one route registrar for the
// HTTP server.
type Router struct {
	decision *DecisionHandler
	batch    *BatchHandler
	ws       *WSHandler
	health   *HealthHandler
	flags    *feature.Flags
}

func NewRouter(decision *DecisionHandler, batch *BatchHandler, ws *WSHandler, health *HealthHandler, flags *feature.Flags) *Router {
	return &Router{decision: decision, batch: batch, ws: ws, health: health, flags: flags}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.Use(r.batchFlagGate)
	r.decision.RegisterRoutes(e)
	r.batch.RegisterRoutes(e)
	r.ws.RegisterRoutes(e)
	r.health.RegisterRoutes(e)
}

// batchFlagGate rejects batch and progress traffic while the batch
// flag is off.
func (r *Router) batchFlagGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := c.Request().URL.Path
		if strings.HasPrefix(p, "/api/batch") || strings.HasPrefix(p, "/ws/jobs") {
			if !r.flags.Enabled(c.Request().Context(), feature.FlagBatch) {
				return xhttp.AppErrorResponse(c, xhttp.NewAppError(
					"ERR_FEATURE_DISABLED", "", "batch processing is disabled", http.StatusServiceUnavailable))
			}
		}
		return next(c)
	}
}
