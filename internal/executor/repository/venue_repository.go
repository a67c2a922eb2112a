package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"golang-signal-pipeline/internal/executor/config"
	"golang-signal-pipeline/internal/executor/dto"
	"golang-signal-pipeline/pkg/logger"
)

// ErrSymbolNotSupported signals that the execution venue does not list the
// requested symbol. Data-source symbols and venue symbols are known to
// diverge (e.g. BTCUSD vs BTCUSDm), so this is an expected outcome, not a
// failure.
var ErrSymbolNotSupported = errors.New("symbol not supported by venue")

// VenueRepository places orders at an execution venue.
type VenueRepository interface {
	PlaceOrder(ctx context.Context, order dto.OrderRequest) (*dto.OrderResult, error)
}

// paperVenueRepository simulates an execution venue against a configured
// symbol listing. It fills at the requested price and assigns an order
// reference, which is enough to drive the pipeline end to end without a
// broker connection.
type paperVenueRepository struct {
	supported map[string]bool
	logger    *logger.Logger
}

// NewPaperVenueRepository creates a simulated venue supporting the given
// symbols. An empty list supports every symbol.
func NewPaperVenueRepository(cfg config.Venue, log *logger.Logger) VenueRepository {
	supported := make(map[string]bool, len(cfg.SupportedSymbols))
	for _, s := range cfg.SupportedSymbols {
		supported[s] = true
	}
	return &paperVenueRepository{
		supported: supported,
		logger:    log,
	}
}

// PlaceOrder fills the order at the requested price.
func (r *paperVenueRepository) PlaceOrder(ctx context.Context, order dto.OrderRequest) (*dto.OrderResult, error) {
	if len(r.supported) > 0 && !r.supported[order.Symbol] {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotSupported, order.Symbol)
	}
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("invalid order quantity %f for %s", order.Quantity, order.Symbol)
	}

	result := &dto.OrderResult{
		Price:    order.Price,
		Quantity: order.Quantity,
		OrderRef: uuid.NewString(),
	}
	r.logger.Info("Paper order filled",
		logger.StringField("symbol", order.Symbol),
		logger.StringField("side", order.Side),
		logger.Field("price", result.Price),
		logger.Field("quantity", result.Quantity),
		logger.StringField("order_ref", result.OrderRef))
	return result, nil
}
