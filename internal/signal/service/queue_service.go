package service

import (
	"context"

	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
)

// QueueService exposes administrative control over the execution queue.
type QueueService interface {
	Drain(ctx context.Context) (int64, error)
}

// NewQueueService creates a new QueueService.
func NewQueueService(queueRepo repository.QueueRepository, log *logger.Logger) QueueService {
	return &queueService{queueRepo: queueRepo, log: log}
}

type queueService struct {
	queueRepo repository.QueueRepository
	log       *logger.Logger
}

// Drain clears all queued execution entries and returns the count removed.
// The operation is idempotent; draining an empty queue clears zero entries.
// In-flight executions already picked up by a worker are not interrupted.
func (s *queueService) Drain(ctx context.Context) (int64, error) {
	cleared, err := s.queueRepo.Drain(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info("Execution queue drained", logger.Field("cleared", cleared))
	return cleared, nil
}
