package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"golang-signal-pipeline/internal/signal/service"
	"golang-signal-pipeline/pkg/logger"
)

// HealthHandler handles HTTP requests for the pipeline health snapshot.
type HealthHandler struct {
	healthService service.HealthService
	logger        *logger.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService service.HealthService, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{healthService: healthService, logger: logger}
}

// RegisterRoutes registers the health routes to the Echo group.
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pipeline", h.GetPipelineHealth)
}

// GetPipelineHealth godoc
// @Summary Pipeline health snapshot
// @Description Health score, per-stage status and recommendations
// @Tags health
// @Produce json
// @Success 200 {object} dto.PipelineHealth
// @Router /health/pipeline [get]
func (h *HealthHandler) GetPipelineHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.healthService.Snapshot(c.Request().Context()))
}
