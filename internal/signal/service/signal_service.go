package service

import (
	"context"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
)

// SignalService exposes the broadcast-signal history to the operational API.
type SignalService interface {
	GetSignals(ctx context.Context, filter dto.SignalFilter) ([]entity.Signal, error)
	GetSignalByID(ctx context.Context, id string) (*entity.Signal, error)
}

// NewSignalService creates a new SignalService.
func NewSignalService(signalRepo repository.SignalRepository, log *logger.Logger) SignalService {
	return &signalService{signalRepo: signalRepo, log: log}
}

type signalService struct {
	signalRepo repository.SignalRepository
	log        *logger.Logger
}

// GetSignals retrieves broadcast signals matching the filter.
func (s *signalService) GetSignals(ctx context.Context, filter dto.SignalFilter) ([]entity.Signal, error) {
	return s.signalRepo.Find(ctx, filter)
}

// GetSignalByID retrieves one signal by its identifier.
func (s *signalService) GetSignalByID(ctx context.Context, id string) (*entity.Signal, error) {
	return s.signalRepo.FindByID(ctx, id)
}
