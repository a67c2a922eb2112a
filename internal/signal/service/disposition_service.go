package service

import (
	"context"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
)

// DispositionService exposes the disposition audit trail to the operational
// API. Queries return whatever history exists even when the live pipeline is
// degraded.
type DispositionService interface {
	GetBySignal(ctx context.Context, signalID string) (*dto.SignalDispositionsResponse, error)
	GetByAgent(ctx context.Context, filter dto.DispositionFilter) ([]entity.AgentSignalDisposition, error)
	GetExclusionStats(ctx context.Context) ([]dto.ExclusionStat, error)
}

// NewDispositionService creates a new DispositionService.
func NewDispositionService(dispositionRepo repository.DispositionRepository, log *logger.Logger) DispositionService {
	return &dispositionService{dispositionRepo: dispositionRepo, log: log}
}

type dispositionService struct {
	dispositionRepo repository.DispositionRepository
	log             *logger.Logger
}

// GetBySignal retrieves a signal's dispositions grouped by status.
func (s *dispositionService) GetBySignal(ctx context.Context, signalID string) (*dto.SignalDispositionsResponse, error) {
	disps, err := s.dispositionRepo.FindBySignalID(ctx, signalID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]entity.AgentSignalDisposition)
	for _, d := range disps {
		grouped[d.Status] = append(grouped[d.Status], d)
	}

	return &dto.SignalDispositionsResponse{
		SignalID:     signalID,
		Total:        len(disps),
		Dispositions: grouped,
	}, nil
}

// GetByAgent retrieves one agent's disposition history.
func (s *dispositionService) GetByAgent(ctx context.Context, filter dto.DispositionFilter) ([]entity.AgentSignalDisposition, error) {
	return s.dispositionRepo.FindByAgent(ctx, filter)
}

// GetExclusionStats retrieves aggregate exclusion-reason counts.
func (s *dispositionService) GetExclusionStats(ctx context.Context) ([]dto.ExclusionStat, error) {
	return s.dispositionRepo.ExclusionReasonStats(ctx)
}
