package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/executor/config"
	"golang-signal-pipeline/internal/executor/dto"
	"golang-signal-pipeline/internal/executor/repository"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/telegram"
)

const (
	testSignalID = "5b7e7f2e-9c2d-4e5a-8f1a-333333333333"
	testAgentID  = uint(42)
)

type fakeDispositionRepo struct {
	mu    sync.Mutex
	disps map[string]*entity.AgentSignalDisposition
	// forceLostRace makes every AdvanceStatus report a lost compare-and-set.
	forceLostRace bool
}

func newFakeDispositionRepo() *fakeDispositionRepo {
	return &fakeDispositionRepo{disps: map[string]*entity.AgentSignalDisposition{}}
}

func dispKey(signalID string, agentID uint) string {
	return fmt.Sprintf("%s:%d", signalID, agentID)
}

func (f *fakeDispositionRepo) put(disp *entity.AgentSignalDisposition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disps[dispKey(disp.SignalID, disp.AgentID)] = disp
}

func (f *fakeDispositionRepo) FindBySignalAndAgent(ctx context.Context, signalID string, agentID uint) (*entity.AgentSignalDisposition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	disp, ok := f.disps[dispKey(signalID, agentID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *disp
	return &copied, nil
}

func (f *fakeDispositionRepo) AdvanceStatus(ctx context.Context, disp *entity.AgentSignalDisposition, from string) (bool, error) {
	if !entity.CanTransitionDisposition(from, disp.Status) {
		return false, fmt.Errorf("illegal disposition transition %s -> %s", from, disp.Status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceLostRace {
		return false, nil
	}

	stored, ok := f.disps[dispKey(disp.SignalID, disp.AgentID)]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = disp.Status
	stored.ExecutionPrice = disp.ExecutionPrice
	stored.ExecutionQuantity = disp.ExecutionQuantity
	stored.OrderRef = disp.OrderRef
	stored.ErrorMessage = disp.ErrorMessage
	stored.ExecutedAt = disp.ExecutedAt
	return true, nil
}

type fakeSignalRepo struct {
	signals map[string]*entity.Signal
}

func (f *fakeSignalRepo) FindByID(ctx context.Context, id string) (*entity.Signal, error) {
	signal, ok := f.signals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return signal, nil
}

type countingVenue struct {
	inner repository.VenueRepository
	err   error
	calls int
}

func (v *countingVenue) PlaceOrder(ctx context.Context, order dto.OrderRequest) (*dto.OrderResult, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.inner.PlaceOrder(ctx, order)
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func executorFixture(venue repository.VenueRepository) (ExecutorService, *fakeDispositionRepo, *fakeSignalRepo) {
	cfg := &config.Config{
		Executor: config.Executor{
			OrderMaxPerMinute:   60000,
			MaxDispatchAttempts: 5,
		},
	}

	dispRepo := newFakeDispositionRepo()
	signalRepo := &fakeSignalRepo{signals: map[string]*entity.Signal{}}

	svc := NewExecutorService(cfg, testLogger(), nil, dispRepo, signalRepo, venue, telegram.NewNoopNotifier())
	return svc, dispRepo, signalRepo
}

func validatedDisposition() *entity.AgentSignalDisposition {
	return &entity.AgentSignalDisposition{
		SignalID:       testSignalID,
		AgentID:        testAgentID,
		AgentName:      "alpha",
		AgentBudget:    1000,
		Symbol:         "BTCUSD",
		Recommendation: entity.RecommendationBuy,
		Status:         entity.DispositionValidated,
	}
}

func queuedEntry() entity.ExecutionQueueEntry {
	return entity.ExecutionQueueEntry{
		SignalID: testSignalID,
		AgentID:  testAgentID,
		Symbol:   "BTCUSD",
		Category: "crypto",
		Attempt:  1,
	}
}

func buySignalRecord(price float64) *entity.Signal {
	return &entity.Signal{
		ID:             testSignalID,
		Symbol:         "BTCUSD",
		Category:       "crypto",
		Recommendation: entity.RecommendationBuy,
		Confidence:     0.80,
		Price:          price,
	}
}

func TestExecute_ValidatedEntryIsExecuted(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, signalRepo := executorFixture(venue)

	dispRepo.put(validatedDisposition())
	signalRepo.signals[testSignalID] = buySignalRecord(100)

	err := svc.Execute(context.Background(), queuedEntry())
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionExecuted, disp.Status)
	require.NotNil(t, disp.ExecutionPrice)
	assert.Equal(t, 100.0, *disp.ExecutionPrice)
	require.NotNil(t, disp.ExecutionQuantity)
	assert.Equal(t, 10.0, *disp.ExecutionQuantity) // budget 1000 over price 100
	require.NotNil(t, disp.OrderRef)
	assert.NotEmpty(t, *disp.OrderRef)
	assert.True(t, disp.ExecutedAt.Valid)
	assert.Equal(t, 1, venue.calls)
}

func TestExecute_UnsupportedVenueSymbolIsFilteredNotFailed(t *testing.T) {
	// Venue lists BTCUSDm, the data-source symbol is BTCUSD.
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{SupportedSymbols: []string{"BTCUSDm"}}, testLogger())}
	svc, dispRepo, signalRepo := executorFixture(venue)

	dispRepo.put(validatedDisposition())
	signalRepo.signals[testSignalID] = buySignalRecord(100)

	err := svc.Execute(context.Background(), queuedEntry())
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFiltered, disp.Status)
	assert.True(t, disp.ErrorMessage.Valid)
	assert.Contains(t, disp.ErrorMessage.String, "symbol not supported")
	assert.Nil(t, disp.ExecutionPrice)
}

func TestExecute_VenueErrorIsFailed(t *testing.T) {
	venue := &countingVenue{err: errors.New("venue connection reset")}
	svc, dispRepo, signalRepo := executorFixture(venue)

	dispRepo.put(validatedDisposition())
	signalRepo.signals[testSignalID] = buySignalRecord(100)

	err := svc.Execute(context.Background(), queuedEntry())
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFailed, disp.Status)
	assert.True(t, disp.ErrorMessage.Valid)
	assert.Contains(t, disp.ErrorMessage.String, "venue connection reset")
}

func TestExecute_ReplayedEntryIsANoOp(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, signalRepo := executorFixture(venue)

	dispRepo.put(validatedDisposition())
	signalRepo.signals[testSignalID] = buySignalRecord(100)

	require.NoError(t, svc.Execute(context.Background(), queuedEntry()))
	require.NoError(t, svc.Execute(context.Background(), queuedEntry()))

	assert.Equal(t, 1, venue.calls, "a duplicate delivery must not place a second order")
}

func TestExecute_MissingDispositionIsDropped(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, _, _ := executorFixture(venue)

	err := svc.Execute(context.Background(), queuedEntry())
	assert.NoError(t, err)
	assert.Zero(t, venue.calls)
}

func TestExecute_MissingSignalRecordFails(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, _ := executorFixture(venue)

	dispRepo.put(validatedDisposition())

	err := svc.Execute(context.Background(), queuedEntry())
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFailed, disp.Status)
	assert.Contains(t, disp.ErrorMessage.String, "signal record missing")
	assert.Zero(t, venue.calls)
}

func TestExecute_SignalWithoutReferencePriceFails(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, signalRepo := executorFixture(venue)

	dispRepo.put(validatedDisposition())
	signalRepo.signals[testSignalID] = buySignalRecord(0)

	err := svc.Execute(context.Background(), queuedEntry())
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFailed, disp.Status)
	assert.Zero(t, venue.calls)
}

func TestRedispatch_ExhaustedAttemptsMarksPairFailed(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, _ := executorFixture(venue)

	dispRepo.put(validatedDisposition())

	entry := queuedEntry()
	entry.Attempt = 5

	svc.(*executorService).redispatch(context.Background(), "signal.execution", entry)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFailed, disp.Status)
	assert.True(t, disp.ErrorMessage.Valid)
	assert.Contains(t, disp.ErrorMessage.String, "dispatch attempts")
	assert.Zero(t, venue.calls)
}

func TestRedispatch_ExhaustedAttemptsLeavesTerminalPairAlone(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, _ := executorFixture(venue)

	disp := validatedDisposition()
	disp.Status = entity.DispositionExecuted
	dispRepo.put(disp)

	entry := queuedEntry()
	entry.Attempt = 5

	svc.(*executorService).redispatch(context.Background(), "signal.execution", entry)

	stored, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionExecuted, stored.Status)
}

func TestFailExhausted_MissingDispositionIsANoOp(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, _, _ := executorFixture(venue)

	err := svc.(*executorService).failExhausted(context.Background(), queuedEntry(), "execution abandoned after 3 deliveries")
	assert.NoError(t, err)
}

func TestFailExhausted_ValidatedPairIsFailedWithReason(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, _ := executorFixture(venue)

	dispRepo.put(validatedDisposition())

	err := svc.(*executorService).failExhausted(context.Background(), queuedEntry(), "execution abandoned after 3 deliveries")
	require.NoError(t, err)

	disp, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionFailed, disp.Status)
	assert.Contains(t, disp.ErrorMessage.String, "execution abandoned")
}

func TestExecute_LostRaceDiscardsOutcome(t *testing.T) {
	venue := &countingVenue{inner: repository.NewPaperVenueRepository(config.Venue{}, testLogger())}
	svc, dispRepo, signalRepo := executorFixture(venue)

	disp := validatedDisposition()
	dispRepo.put(disp)
	signalRepo.signals[testSignalID] = buySignalRecord(100)
	dispRepo.forceLostRace = true

	err := svc.Execute(context.Background(), queuedEntry())
	assert.NoError(t, err, "losing the compare-and-set is not an error for the losing worker")

	stored, err := dispRepo.FindBySignalAndAgent(context.Background(), testSignalID, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DispositionValidated, stored.Status)
}
