package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/pkg/logger"
)

type fakeAgentRepo struct {
	mu       sync.Mutex
	agents   []entity.Agent
	findAlls int
}

func (f *fakeAgentRepo) FindAll(ctx context.Context) ([]entity.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findAlls++
	return f.agents, nil
}

func (f *fakeAgentRepo) FindByID(ctx context.Context, id uint) (*entity.Agent, error) {
	for i := range f.agents {
		if f.agents[i].ID == id {
			return &f.agents[i], nil
		}
	}
	return nil, nil
}

type fakeDispositionRepo struct {
	mu    sync.Mutex
	disps []entity.AgentSignalDisposition
}

func (f *fakeDispositionRepo) Create(ctx context.Context, disp *entity.AgentSignalDisposition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disps = append(f.disps, *disp)
	return nil
}

func (f *fakeDispositionRepo) FindBySignalID(ctx context.Context, signalID string) ([]entity.AgentSignalDisposition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AgentSignalDisposition
	for _, d := range f.disps {
		if d.SignalID == signalID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDispositionRepo) FindByAgent(ctx context.Context, filter dto.DispositionFilter) ([]entity.AgentSignalDisposition, error) {
	return nil, nil
}

func (f *fakeDispositionRepo) CountProcessedSince(ctx context.Context, since time.Time) (int64, error) {
	return int64(len(f.disps)), nil
}

func (f *fakeDispositionRepo) CountStatusSince(ctx context.Context, status string, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeDispositionRepo) CountExecutedSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeDispositionRepo) ExclusionReasonStats(ctx context.Context) ([]dto.ExclusionStat, error) {
	return nil, nil
}

func (f *fakeDispositionRepo) byAgent(agentID uint) *entity.AgentSignalDisposition {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.disps {
		if f.disps[i].AgentID == agentID {
			return &f.disps[i]
		}
	}
	return nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []entity.ExecutionQueueEntry
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, entry entity.ExecutionQueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeQueueRepo) Len(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeQueueRepo) Drain(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.entries))
	f.entries = nil
	return n, nil
}

type fakeValidator struct {
	mu     sync.Mutex
	result ValidationResult
	calls  int
}

func (f *fakeValidator) Validate(ctx context.Context, agent *entity.Agent, signal *entity.Signal) (ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, nil
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func broadcastFixture(agents []entity.Agent, result ValidationResult) (BroadcastService, *fakeAgentRepo, *fakeDispositionRepo, *fakeQueueRepo, *fakeValidator) {
	cfg := &config.Config{
		Broadcast: config.Broadcast{
			MinBalance:    10,
			AgentCacheTTL: time.Minute,
		},
	}
	agentRepo := &fakeAgentRepo{agents: agents}
	dispRepo := &fakeDispositionRepo{}
	queueRepo := &fakeQueueRepo{}
	validator := &fakeValidator{result: result}

	svc := NewBroadcastService(cfg, testLogger(), agentRepo, dispRepo, queueRepo, validator)
	return svc, agentRepo, dispRepo, queueRepo, validator
}

func testSignal() *entity.Signal {
	return &entity.Signal{
		ID:                "5b7e7f2e-9c2d-4e5a-8f1a-111111111111",
		Symbol:            "BTCUSD",
		Category:          "crypto",
		Recommendation:    entity.RecommendationBuy,
		Confidence:        0.80,
		Price:             100,
		ConsensusAchieved: true,
	}
}

func runningAgent(id uint) entity.Agent {
	return entity.Agent{
		ID:               id,
		Name:             "agent",
		Status:           entity.AgentStatusRunning,
		Budget:           1000,
		AvailableBalance: 500,
		MaxOpenPositions: 5,
		OpenPositions:    1,
	}
}

func TestBroadcast_IneligibleAgentIsExcludedWithAllReasons(t *testing.T) {
	agent := entity.Agent{
		ID:               1,
		Name:             "underfunded",
		Status:           entity.AgentStatusPaused,
		AvailableBalance: 5,
		MaxOpenPositions: 2,
		OpenPositions:    2,
		Categories:       []string{"forex"},
		Symbols:          []string{"EURUSD"},
	}
	svc, _, dispRepo, queueRepo, validator := broadcastFixture([]entity.Agent{agent}, ValidationResult{Passed: true})

	err := svc.Broadcast(context.Background(), testSignal())
	require.NoError(t, err)

	disp := dispRepo.byAgent(1)
	require.NotNil(t, disp)
	assert.Equal(t, entity.DispositionExcluded, disp.Status)
	assert.ElementsMatch(t, []string{
		entity.ExclusionAgentNotRunning,
		entity.ExclusionInsufficientBalance,
		entity.ExclusionMaxPositionsReached,
		entity.ExclusionCategoryMismatch,
		entity.ExclusionSymbolNotSubscribed,
	}, []string(disp.ExclusionReasons))

	assert.Empty(t, queueRepo.entries, "excluded agents must never reach the queue")
	assert.Zero(t, validator.calls, "excluded agents must not be validated")
}

func TestBroadcast_InsufficientBalanceOnly(t *testing.T) {
	agent := runningAgent(2)
	agent.AvailableBalance = 5

	svc, _, dispRepo, queueRepo, _ := broadcastFixture([]entity.Agent{agent}, ValidationResult{Passed: true})

	err := svc.Broadcast(context.Background(), testSignal())
	require.NoError(t, err)

	disp := dispRepo.byAgent(2)
	require.NotNil(t, disp)
	assert.Equal(t, entity.DispositionExcluded, disp.Status)
	assert.Equal(t, []string{entity.ExclusionInsufficientBalance}, []string(disp.ExclusionReasons))
	assert.Empty(t, queueRepo.entries)
}

func TestBroadcast_RejectedAgentRecordsScoresAndIsNotEnqueued(t *testing.T) {
	result := ValidationResult{Passed: false, Score: 45, WinProbability: 52, RiskReward: 0.8}
	svc, _, dispRepo, queueRepo, _ := broadcastFixture([]entity.Agent{runningAgent(3)}, result)

	err := svc.Broadcast(context.Background(), testSignal())
	require.NoError(t, err)

	disp := dispRepo.byAgent(3)
	require.NotNil(t, disp)
	assert.Equal(t, entity.DispositionRejected, disp.Status)
	require.NotNil(t, disp.ValidationScore)
	assert.Equal(t, 45.0, *disp.ValidationScore)
	require.NotNil(t, disp.WinProbability)
	assert.Equal(t, 52.0, *disp.WinProbability)
	assert.Empty(t, queueRepo.entries)
}

func TestBroadcast_ValidatedAgentIsEnqueued(t *testing.T) {
	result := ValidationResult{Passed: true, Score: 86, WinProbability: 80, RiskReward: 2}
	svc, _, dispRepo, queueRepo, _ := broadcastFixture([]entity.Agent{runningAgent(4)}, result)

	signal := testSignal()
	err := svc.Broadcast(context.Background(), signal)
	require.NoError(t, err)

	disp := dispRepo.byAgent(4)
	require.NotNil(t, disp)
	assert.Equal(t, entity.DispositionValidated, disp.Status)

	require.Len(t, queueRepo.entries, 1)
	entry := queueRepo.entries[0]
	assert.Equal(t, signal.ID, entry.SignalID)
	assert.Equal(t, uint(4), entry.AgentID)
	assert.Equal(t, "BTCUSD", entry.Symbol)
	assert.Equal(t, "crypto", entry.Category)
	assert.Equal(t, 1, entry.Attempt)
}

func TestBroadcast_EveryAgentGetsADisposition(t *testing.T) {
	paused := runningAgent(5)
	paused.Status = entity.AgentStatusPaused

	agents := []entity.Agent{runningAgent(1), runningAgent(2), paused}
	svc, _, dispRepo, _, _ := broadcastFixture(agents, ValidationResult{Passed: true})

	err := svc.Broadcast(context.Background(), testSignal())
	require.NoError(t, err)

	disps, err := dispRepo.FindBySignalID(context.Background(), testSignal().ID)
	require.NoError(t, err)
	assert.Len(t, disps, 3, "audit trail must cover agents that never received the signal")
}

func TestBroadcast_DispositionSnapshotsAgentConfiguration(t *testing.T) {
	agent := runningAgent(6)
	agent.Name = "alpha"
	agent.RiskLevel = "conservative"
	agent.Budget = 250
	agent.Categories = []string{"crypto", "forex"}

	svc, _, dispRepo, _, _ := broadcastFixture([]entity.Agent{agent}, ValidationResult{Passed: true})

	err := svc.Broadcast(context.Background(), testSignal())
	require.NoError(t, err)

	disp := dispRepo.byAgent(6)
	require.NotNil(t, disp)
	assert.Equal(t, "alpha", disp.AgentName)
	assert.Equal(t, "conservative", disp.AgentRiskLevel)
	assert.Equal(t, 250.0, disp.AgentBudget)
	assert.Equal(t, "crypto,forex", disp.AgentCategory)
	assert.Equal(t, entity.AgentStatusRunning, disp.AgentStatus)
	assert.False(t, disp.ProcessedAt.IsZero())
}

func TestBroadcast_AgentListIsCached(t *testing.T) {
	svc, agentRepo, _, _, _ := broadcastFixture([]entity.Agent{runningAgent(7)}, ValidationResult{Passed: true})

	require.NoError(t, svc.Broadcast(context.Background(), testSignal()))
	second := testSignal()
	second.ID = "5b7e7f2e-9c2d-4e5a-8f1a-222222222222"
	require.NoError(t, svc.Broadcast(context.Background(), second))

	assert.Equal(t, 1, agentRepo.findAlls, "second broadcast within the TTL should reuse the cached population")
}
