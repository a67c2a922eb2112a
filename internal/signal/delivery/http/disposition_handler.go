package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/service"
	"golang-signal-pipeline/pkg/logger"
)

// DispositionHandler handles HTTP requests for the disposition audit trail.
type DispositionHandler struct {
	dispositionService service.DispositionService
	logger             *logger.Logger
}

// NewDispositionHandler creates a new DispositionHandler.
func NewDispositionHandler(dispositionService service.DispositionService, logger *logger.Logger) *DispositionHandler {
	return &DispositionHandler{dispositionService: dispositionService, logger: logger}
}

// RegisterAgentRoutes registers the per-agent disposition routes.
func (h *DispositionHandler) RegisterAgentRoutes(g *echo.Group) {
	g.GET("/:id/dispositions", h.GetAgentDispositions)
}

// RegisterRoutes registers the aggregate disposition routes.
func (h *DispositionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/exclusion-stats", h.GetExclusionStats)
}

// GetAgentDispositions godoc
// @Summary Get an agent's disposition history
// @Description Get dispositions for one agent, filterable by status, symbol and date range
// @Tags agents
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {array} entity.AgentSignalDisposition
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /agents/{id}/dispositions [get]
func (h *DispositionHandler) GetAgentDispositions(c echo.Context) error {
	agentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid agent ID"})
	}

	filter := dto.DispositionFilter{
		AgentID: uint(agentID),
		Status:  c.QueryParam("status"),
		Symbol:  c.QueryParam("symbol"),
	}
	if filter.From, err = parseTimeParam(c.QueryParam("from")); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'from' timestamp"})
	}
	if filter.To, err = parseTimeParam(c.QueryParam("to")); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'to' timestamp"})
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		filter.Limit = limit
	}

	disps, err := h.dispositionService.GetByAgent(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("Failed to get agent dispositions", logger.ErrorField(err), logger.Field("agent_id", agentID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get dispositions"})
	}
	return c.JSON(http.StatusOK, disps)
}

// GetExclusionStats returns aggregate exclusion-reason counts across all
// EXCLUDED dispositions.
func (h *DispositionHandler) GetExclusionStats(c echo.Context) error {
	stats, err := h.dispositionService.GetExclusionStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get exclusion stats", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get exclusion stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
