package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/service"
	"golang-signal-pipeline/pkg/logger"
)

// SignalHandler handles HTTP requests for broadcast signals.
type SignalHandler struct {
	signalService      service.SignalService
	dispositionService service.DispositionService
	logger             *logger.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(signalService service.SignalService, dispositionService service.DispositionService, logger *logger.Logger) *SignalHandler {
	return &SignalHandler{signalService: signalService, dispositionService: dispositionService, logger: logger}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSignals)
	g.GET("/:id", h.GetSignalByID)
	g.GET("/:id/dispositions", h.GetSignalDispositions)
}

// GetSignals godoc
// @Summary List broadcast signals
// @Description List signals filterable by symbol, recommendation and date range
// @Tags signals
// @Produce json
// @Param symbol query string false "Trading symbol"
// @Param recommendation query string false "BUY, SELL or HOLD"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {array} entity.Signal
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals [get]
func (h *SignalHandler) GetSignals(c echo.Context) error {
	filter := dto.SignalFilter{
		Symbol:         c.QueryParam("symbol"),
		Recommendation: c.QueryParam("recommendation"),
	}

	var err error
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

	signals, err := h.signalService.GetSignals(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("Failed to get signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get signals"})
	}
	return c.JSON(http.StatusOK, signals)
}

// GetSignalByID returns a single signal by its identifier.
func (h *SignalHandler) GetSignalByID(c echo.Context) error {
	signal, err := h.signalService.GetSignalByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Signal not found"})
	}
	return c.JSON(http.StatusOK, signal)
}

// GetSignalDispositions godoc
// @Summary Get dispositions for a signal
// @Description Get all agent dispositions for one signal, grouped by status
// @Tags signals
// @Produce json
// @Param id path string true "Signal ID"
// @Success 200 {object} dto.SignalDispositionsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/{id}/dispositions [get]
func (h *SignalHandler) GetSignalDispositions(c echo.Context) error {
	resp, err := h.dispositionService.GetBySignal(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get signal dispositions", logger.ErrorField(err), logger.StringField("signal_id", c.Param("id")))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get dispositions"})
	}
	return c.JSON(http.StatusOK, resp)
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
