package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
)

// HealthService derives a pipeline health score from windowed activity
// counts. It is read-only and never mutates pipeline state; a failing
// sub-metric is treated as zero activity rather than an error.
type HealthService interface {
	Snapshot(ctx context.Context) *dto.PipelineHealth
}

// NewHealthService creates a new HealthService.
func NewHealthService(
	cfg *config.Config,
	log *logger.Logger,
	signalRepo repository.SignalRepository,
	dispositionRepo repository.DispositionRepository,
	queueRepo repository.QueueRepository,
) HealthService {
	return &healthService{
		cfg:             cfg,
		log:             log,
		signalRepo:      signalRepo,
		dispositionRepo: dispositionRepo,
		queueRepo:       queueRepo,
	}
}

type healthService struct {
	cfg             *config.Config
	log             *logger.Logger
	signalRepo      repository.SignalRepository
	dispositionRepo repository.DispositionRepository
	queueRepo       repository.QueueRepository
}

// Snapshot computes the current health score, per-stage status and
// recommendations.
func (s *healthService) Snapshot(ctx context.Context) *dto.PipelineHealth {
	now := time.Now()
	hourAgo := now.Add(-time.Hour)
	tenMinAgo := now.Add(-10 * time.Minute)

	signals := s.count(func() (int64, error) { return s.signalRepo.CountSince(ctx, hourAgo) }, "signals")
	dispositions := s.count(func() (int64, error) { return s.dispositionRepo.CountProcessedSince(ctx, tenMinAgo) }, "dispositions")
	executions := s.count(func() (int64, error) { return s.dispositionRepo.CountExecutedSince(ctx, tenMinAgo) }, "executions")
	validated := s.count(func() (int64, error) {
		return s.dispositionRepo.CountStatusSince(ctx, entity.DispositionValidated, tenMinAgo)
	}, "validated")
	queueLen := s.count(func() (int64, error) { return s.queueRepo.Len(ctx) }, "queue length")

	signalScore := scaledScore(signals, int64(s.cfg.Health.SignalsPerHour), 40)
	dispositionScore := scaledScore(dispositions, int64(s.cfg.Health.DispositionsPer10Min), 30)

	executionScore := scaledScore(executions, int64(s.cfg.Health.ExecutionsPer10Min), 30)
	executionDetail := fmt.Sprintf("%d executions in the last 10 minutes", executions)
	if executions == 0 && queueLen > 0 {
		// A non-empty queue means work is flowing even if nothing completed yet.
		executionScore = 15
		executionDetail = fmt.Sprintf("no executions yet, %d entries queued", queueLen)
	}

	score := signalScore + dispositionScore + executionScore

	status := dto.HealthStatusCritical
	switch {
	case score >= 70:
		status = dto.HealthStatusHealthy
	case score >= 40:
		status = dto.HealthStatusDegraded
	}

	return &dto.PipelineHealth{
		Score:                 score,
		Status:                status,
		SignalsLastHour:       signals,
		DispositionsLast10Min: dispositions,
		ExecutionsLast10Min:   executions,
		QueueLength:           queueLen,
		Stages: []dto.StageStatus{
			{Stage: "detection", Score: signalScore, Max: 40, Detail: fmt.Sprintf("%d signals in the last hour", signals)},
			{Stage: "broadcast", Score: dispositionScore, Max: 30, Detail: fmt.Sprintf("%d dispositions in the last 10 minutes", dispositions)},
			{Stage: "execution", Score: executionScore, Max: 30, Detail: executionDetail},
		},
		Recommendations: s.recommendations(signals, dispositions, validated, executions, queueLen),
		GeneratedAt:     now,
	}
}

// count runs one sub-metric query, defaulting to the worst-case zero when the
// query fails.
func (s *healthService) count(fn func() (int64, error), name string) int64 {
	n, err := fn()
	if err != nil {
		s.log.Error("Health sub-metric query failed, assuming zero",
			logger.ErrorField(err), logger.StringField("metric", name))
		return 0
	}
	return n
}

// scaledScore maps a count onto 0..max, with full credit at the target volume.
func scaledScore(count, target, max int64) int {
	if target <= 0 || count <= 0 {
		return 0
	}
	ratio := math.Min(float64(count)/float64(target), 1)
	return int(math.Round(ratio * float64(max)))
}

// recommendations runs the rule checks that turn raw counts into actionable
// operator guidance.
func (s *healthService) recommendations(signals, dispositions, validated, executions, queueLen int64) []string {
	var recs []string

	if signals == 0 {
		recs = append(recs, "No signals detected in the last hour; check the detection schedule and specialist availability.")
	}
	if signals > 0 && dispositions == 0 {
		recs = append(recs, "Signals are being detected but no dispositions are logged; the broadcaster may be failing silently.")
	}
	if validated > 0 && executions == 0 {
		recs = append(recs, "Validated signals but zero executions; check executor connectivity.")
	}
	if queueLen > 100 {
		recs = append(recs, fmt.Sprintf("Execution queue backlog of %d entries; consider adding executor workers.", queueLen))
	}

	return recs
}
