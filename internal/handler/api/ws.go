package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"Draks/internal/batch"
	"Draks/internal/progress"
	xhttp "Draks/pkg/http"
	xlogger "Draks/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin subscribers are allowed; job ownership is checked
	// before the upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSHandler upgrades progress subscriptions onto the hub.
type WSHandler struct {
	logger  *xlogger.Logger
	hub     *progress.Hub
	manager *batch.Manager
}

func NewWSHandler(logger *xlogger.Logger, hub *progress.Hub, manager *batch.Manager) *WSHandler {
	return &WSHandler{logger: logger, hub: hub, manager: manager}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/jobs/:job_id", h.Join)
}

func (h *WSHandler) Join(c echo.Context) error {
	jobID := c.Param("job_id")
	if !batch.ValidJobID(jobID) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_JOB_NOT_FOUND", "job_id", "job not found", http.StatusNotFound))
	}
	user, aerr := requireUser(c)
	if aerr != nil {
		return aerr
	}
	if err := h.manager.Authorize(c.Request().Context(), jobID, user, isAdmin(c)); err != nil {
		return h.authError(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			xlogger.String("job_id", jobID), xlogger.Error(err))
		return nil
	}

	h.hub.Join(jobID, conn)
	return nil
}

func (h *WSHandler) authError(c echo.Context, err error) error {
	status := http.StatusNotFound
	code := "ERR_JOB_NOT_FOUND"
	if errors.Is(err, batch.ErrForbidden) {
		status = http.StatusForbidden
		code = "ERR_FORBIDDEN"
	}
	return xhttp.AppErrorResponse(c, xhttp.NewAppError(code, "job_id", err.Error(), status).WithError(err))
}
