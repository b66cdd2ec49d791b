package api

import (
	"errors"
	"net/http"

	"Draks/internal/batch"
	models "Draks/internal/domain/models"
	xhttp "Draks/pkg/http"
	xlogger "Draks/pkg/logger"
	"Draks/pkg/util"

	"github.com/labstack/echo/v4"
)

// Identity headers. The subsystem sits behind a gateway that
// authenticates callers and forwards these.
const (
	HeaderUserID = "X-User-ID"
	HeaderAdmin  = "X-Admin"
)

// BatchHandler serves batch submission and query endpoints.
type BatchHandler struct {
	logger  *xlogger.Logger
	manager *batch.Manager
}

func NewBatchHandler(logger *xlogger.Logger, manager *batch.Manager) *BatchHandler {
	return &BatchHandler{logger: logger, manager: manager}
}

func (h *BatchHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/batch")
	g.POST("", h.Submit)
	g.GET("/:job_id", h.Status)
	g.GET("/:job_id/results", h.Results)
}

func (h *BatchHandler) Submit(c echo.Context) error {
	req := &models.BatchSubmitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	user, aerr := requireUser(c)
	if aerr != nil {
		return aerr
	}

	res, err := h.manager.Submit(c.Request().Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrNoSymbols):
			return xhttp.AppErrorResponse(c, xhttp.NewAppError(
				"ERR_INVALID_INPUT", "symbols", err.Error(), http.StatusBadRequest).WithError(err))
		case errors.Is(err, batch.ErrBadTimeframe):
			return xhttp.AppErrorResponse(c, xhttp.NewAppError(
				"ERR_INVALID_INPUT", "timeframe", err.Error(), http.StatusBadRequest).WithError(err))
		default:
			h.logger.Error("batch submit failed", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
	}
	return xhttp.DataResponse(c, http.StatusAccepted, res)
}

func (h *BatchHandler) Status(c echo.Context) error {
	user, aerr := requireUser(c)
	if aerr != nil {
		return aerr
	}
	res, err := h.manager.Status(c.Request().Context(), c.Param("job_id"), user, isAdmin(c))
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BatchHandler) Results(c echo.Context) error {
	user, aerr := requireUser(c)
	if aerr != nil {
		return aerr
	}
	filter := batch.ResultsFilter{
		Status:   c.QueryParam("status"),
		Decision: c.QueryParam("decision"),
		Symbol:   c.QueryParam("symbol"),
		Limit:    util.ParseIntDefault(c.QueryParam("limit"), 0),
	}
	res, err := h.manager.Results(c.Request().Context(), c.Param("job_id"), user, isAdmin(c), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BatchHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, batch.ErrJobNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_JOB_NOT_FOUND", "job_id", "job not found", http.StatusNotFound).WithError(err))
	case errors.Is(err, batch.ErrForbidden):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_FORBIDDEN", "", "job belongs to another user", http.StatusForbidden).WithError(err))
	default:
		h.logger.Error("batch query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

// requireUser reads the caller identity forwarded by the gateway.
// Requests without it are rejected before touching any job state.
func requireUser(c echo.Context) (string, error) {
	if id := c.Request().Header.Get(HeaderUserID); id != "" {
		return id, nil
	}
	return "", xhttp.AppErrorResponse(c, xhttp.NewAppError(
		"ERR_UNAUTHORIZED", HeaderUserID, "missing caller identity", http.StatusUnauthorized))
}

func isAdmin(c echo.Context) bool {
	return c.Request().Header.Get(HeaderAdmin) == "true"
}
