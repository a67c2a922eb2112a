package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/service"
	"golang-signal-pipeline/pkg/logger"
)

// QueueHandler handles administrative HTTP requests for the execution queue.
type QueueHandler struct {
	queueService service.QueueService
	logger       *logger.Logger
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(queueService service.QueueService, logger *logger.Logger) *QueueHandler {
	return &QueueHandler{queueService: queueService, logger: logger}
}

// RegisterRoutes registers the queue routes to the Echo group.
func (h *QueueHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/drain", h.DrainQueue)
}

// DrainQueue godoc
// @Summary Drain the execution queue
// @Description Remove all queued execution entries; in-flight executions are not interrupted
// @Tags queue
// @Produce json
// @Success 200 {object} dto.DrainResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /queue/drain [post]
func (h *QueueHandler) DrainQueue(c echo.Context) error {
	cleared, err := h.queueService.Drain(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to drain execution queue", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to drain queue"})
	}
	return c.JSON(http.StatusOK, dto.DrainResponse{Cleared: cleared})
}
