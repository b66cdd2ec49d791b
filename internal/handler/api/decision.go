package api

import (
	"errors"
	"net/http"

	models "Draks/internal/domain/models"
	"Draks/internal/service/ratelimit"
	"Draks/internal/usecase"
	xhttp "Draks/pkg/http"
	xlogger "Draks/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Per-IP token bucket for the synchronous decision endpoint. Batch
// submissions are bounded by the queue instead.
const (
	decisionBurst     = 10
	decisionPerSecond = 5
)

// DecisionHandler serves the synchronous decision endpoint.
type DecisionHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.DecisionUseCase
	limiter *ratelimit.Limiter
}

func NewDecisionHandler(logger *xlogger.Logger, uc *usecase.DecisionUseCase, limiter *ratelimit.Limiter) *DecisionHandler {
	return &DecisionHandler{logger: logger, uc: uc, limiter: limiter}
}

func (h *DecisionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/decision", h.Decide)
}

func (h *DecisionHandler) Decide(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), decisionBurst, decisionPerSecond) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
	}

	req := &models.DecisionHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Decide(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionHandler) fail(c echo.Context, symbol string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_INVALID_INPUT", "", err.Error(), http.StatusBadRequest).WithError(err))
	case errors.Is(err, usecase.ErrInsufficientData):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_INSUFFICIENT_DATA", "candles", "not enough history for a decision", http.StatusBadRequest).WithError(err))
	case errors.Is(err, usecase.ErrUpstreamFailed):
		h.logger.Warn("market data unavailable",
			xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_UPSTREAM", "", "market data unavailable", http.StatusServiceUnavailable).WithError(err))
	default:
		h.logger.Error("decision pipeline error",
			xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
