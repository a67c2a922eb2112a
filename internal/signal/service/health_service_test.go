package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
)

type stubSignalRepo struct {
	count int64
	err   error
}

func (s *stubSignalRepo) Create(ctx context.Context, signal *entity.Signal) error { return nil }

func (s *stubSignalRepo) FindByID(ctx context.Context, id string) (*entity.Signal, error) {
	return nil, nil
}

func (s *stubSignalRepo) Find(ctx context.Context, filter dto.SignalFilter) ([]entity.Signal, error) {
	return nil, nil
}

func (s *stubSignalRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.count, s.err
}

type stubDispositionCounts struct {
	fakeDispositionRepo
	processed int64
	executed  int64
	validated int64
}

func (s *stubDispositionCounts) CountProcessedSince(ctx context.Context, since time.Time) (int64, error) {
	return s.processed, nil
}

func (s *stubDispositionCounts) CountExecutedSince(ctx context.Context, since time.Time) (int64, error) {
	return s.executed, nil
}

func (s *stubDispositionCounts) CountStatusSince(ctx context.Context, status string, since time.Time) (int64, error) {
	return s.validated, nil
}

type stubQueueLen struct {
	fakeQueueRepo
	length int64
}

func (s *stubQueueLen) Len(ctx context.Context) (int64, error) { return s.length, nil }

func healthFixture(signals *stubSignalRepo, disps *stubDispositionCounts, queue *stubQueueLen) HealthService {
	cfg := &config.Config{
		Health: config.Health{
			SignalsPerHour:       3,
			DispositionsPer10Min: 5,
			ExecutionsPer10Min:   1,
		},
	}
	return NewHealthService(cfg, testLogger(), signals, disps, queue)
}

func TestHealthSnapshot_IdlePipelineIsCritical(t *testing.T) {
	svc := healthFixture(&stubSignalRepo{}, &stubDispositionCounts{}, &stubQueueLen{})

	health := svc.Snapshot(context.Background())

	assert.Equal(t, 0, health.Score)
	assert.Equal(t, dto.HealthStatusCritical, health.Status)
	require.NotEmpty(t, health.Recommendations)
	assert.Contains(t, health.Recommendations[0], "No signals detected in the last hour")
}

func TestHealthSnapshot_FullActivityIsHealthy(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{count: 3},
		&stubDispositionCounts{processed: 5, executed: 1},
		&stubQueueLen{},
	)

	health := svc.Snapshot(context.Background())

	assert.Equal(t, 100, health.Score)
	assert.Equal(t, dto.HealthStatusHealthy, health.Status)
	assert.Empty(t, health.Recommendations)
}

func TestHealthSnapshot_PartialActivityScalesScore(t *testing.T) {
	// 1/3 signals -> 13, 2/5 dispositions -> 12, 0 executions with empty queue -> 0.
	svc := healthFixture(
		&stubSignalRepo{count: 1},
		&stubDispositionCounts{processed: 2},
		&stubQueueLen{},
	)

	health := svc.Snapshot(context.Background())

	assert.Equal(t, 25, health.Score)
	assert.Equal(t, dto.HealthStatusCritical, health.Status)
}

func TestHealthSnapshot_QueuedWorkEarnsPartialExecutionCredit(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{count: 3},
		&stubDispositionCounts{processed: 5},
		&stubQueueLen{length: 4},
	)

	health := svc.Snapshot(context.Background())

	// 40 + 30 + 15 partial credit for a non-empty queue.
	assert.Equal(t, 85, health.Score)
	assert.Equal(t, dto.HealthStatusHealthy, health.Status)
	require.Len(t, health.Stages, 3)
	assert.Equal(t, 15, health.Stages[2].Score)
	assert.Contains(t, health.Stages[2].Detail, "4 entries queued")
}

func TestHealthSnapshot_SilentBroadcasterRecommendation(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{count: 2},
		&stubDispositionCounts{},
		&stubQueueLen{},
	)

	health := svc.Snapshot(context.Background())

	require.NotEmpty(t, health.Recommendations)
	assert.Contains(t, health.Recommendations[0], "broadcaster may be failing silently")
}

func TestHealthSnapshot_StalledExecutorRecommendation(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{count: 3},
		&stubDispositionCounts{processed: 5, validated: 2},
		&stubQueueLen{length: 2},
	)

	health := svc.Snapshot(context.Background())

	require.NotEmpty(t, health.Recommendations)
	assert.Contains(t, health.Recommendations[0], "check executor connectivity")
}

func TestHealthSnapshot_QueueBacklogRecommendation(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{count: 3},
		&stubDispositionCounts{processed: 5, executed: 1},
		&stubQueueLen{length: 150},
	)

	health := svc.Snapshot(context.Background())

	require.NotEmpty(t, health.Recommendations)
	assert.Contains(t, health.Recommendations[0], "backlog of 150 entries")
}

func TestHealthSnapshot_FailingSubMetricCountsAsZero(t *testing.T) {
	svc := healthFixture(
		&stubSignalRepo{err: errors.New("connection refused")},
		&stubDispositionCounts{processed: 5, executed: 1},
		&stubQueueLen{},
	)

	health := svc.Snapshot(context.Background())

	assert.Equal(t, int64(0), health.SignalsLastHour)
	assert.Equal(t, 60, health.Score) // 0 + 30 + 30
	assert.Equal(t, dto.HealthStatusDegraded, health.Status)
}
