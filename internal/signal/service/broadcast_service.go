package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/utils"
)

const agentCacheKey = "agents"

// BroadcastService fans an aggregated signal out to the agent population and
// records one disposition per agent, including the agents that never received
// it. The audit trail must explain why an agent did not trade, not only which
// agents did.
type BroadcastService interface {
	Broadcast(ctx context.Context, signal *entity.Signal) error
}

// NewBroadcastService creates a new BroadcastService.
func NewBroadcastService(
	cfg *config.Config,
	log *logger.Logger,
	agentRepo repository.AgentRepository,
	dispositionRepo repository.DispositionRepository,
	queueRepo repository.QueueRepository,
	validator AgentValidator,
) BroadcastService {
	return &broadcastService{
		cfg:             cfg,
		log:             log,
		agentRepo:       agentRepo,
		dispositionRepo: dispositionRepo,
		queueRepo:       queueRepo,
		validator:       validator,
		agentCache:      gocache.New(cfg.Broadcast.AgentCacheTTL, 2*cfg.Broadcast.AgentCacheTTL),
	}
}

type broadcastService struct {
	cfg             *config.Config
	log             *logger.Logger
	agentRepo       repository.AgentRepository
	dispositionRepo repository.DispositionRepository
	queueRepo       repository.QueueRepository
	validator       AgentValidator
	agentCache      *gocache.Cache
}

// Broadcast classifies every agent for the given signal. Classification is
// concurrent with per-agent error isolation: one agent's failure is logged
// and does not block the others.
func (s *broadcastService) Broadcast(ctx context.Context, signal *entity.Signal) error {
	agents, err := s.listAgents(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate agents: %w", err)
	}

	var wg sync.WaitGroup
	for _, agent := range agents {
		agent := agent
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			if err := s.classifyAgent(ctx, &agent, signal); err != nil {
				s.log.Error("Failed to classify agent for signal",
					logger.ErrorField(err),
					logger.Field("agent_id", agent.ID),
					logger.StringField("signal_id", signal.ID))
			}
		})
	}
	wg.Wait()

	s.log.Info("Signal broadcast completed",
		logger.StringField("signal_id", signal.ID),
		logger.StringField("symbol", signal.Symbol),
		logger.IntField("agents", len(agents)))
	return nil
}

// listAgents returns the agent population, served from a short-lived cache.
// The disposition row denormalizes agent fields anyway, so a slightly stale
// snapshot only delays eligibility changes by the cache TTL.
func (s *broadcastService) listAgents(ctx context.Context) ([]entity.Agent, error) {
	if cached, found := s.agentCache.Get(agentCacheKey); found {
		return cached.([]entity.Agent), nil
	}

	agents, err := s.agentRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	s.agentCache.Set(agentCacheKey, agents, gocache.DefaultExpiration)
	return agents, nil
}

// classifyAgent runs one agent through the eligibility and validation steps
// and persists the resulting disposition.
func (s *broadcastService) classifyAgent(ctx context.Context, agent *entity.Agent, signal *entity.Signal) error {
	disp := s.newDisposition(agent, signal)

	if reasons := s.eligibilityReasons(agent, signal); len(reasons) > 0 {
		disp.Status = entity.DispositionExcluded
		disp.ExclusionReasons = reasons
		return s.dispositionRepo.Create(ctx, disp)
	}

	result, err := s.validator.Validate(ctx, agent, signal)
	if err != nil {
		return fmt.Errorf("validation failed for agent %d: %w", agent.ID, err)
	}

	disp.ValidationScore = &result.Score
	disp.WinProbability = &result.WinProbability
	disp.RiskReward = &result.RiskReward

	if !result.Passed {
		disp.Status = entity.DispositionRejected
		return s.dispositionRepo.Create(ctx, disp)
	}

	disp.Status = entity.DispositionValidated
	if err := s.dispositionRepo.Create(ctx, disp); err != nil {
		return err
	}

	entry := entity.ExecutionQueueEntry{
		SignalID:   signal.ID,
		AgentID:    agent.ID,
		Symbol:     signal.Symbol,
		Category:   signal.Category,
		EnqueuedAt: time.Now(),
		Attempt:    1,
	}
	if err := s.queueRepo.Enqueue(ctx, entry); err != nil {
		// The disposition stays VALIDATED; an operator can re-submit it.
		return fmt.Errorf("failed to enqueue validated pair: %w", err)
	}
	return nil
}

// eligibilityReasons checks every filter independently and returns all
// applicable exclusion reasons, not just the first one.
func (s *broadcastService) eligibilityReasons(agent *entity.Agent, signal *entity.Signal) []string {
	var reasons []string

	if agent.Status != entity.AgentStatusRunning {
		reasons = append(reasons, entity.ExclusionAgentNotRunning)
	}
	if agent.AvailableBalance < s.cfg.Broadcast.MinBalance {
		reasons = append(reasons, entity.ExclusionInsufficientBalance)
	}
	if agent.MaxOpenPositions > 0 && agent.OpenPositions >= agent.MaxOpenPositions {
		reasons = append(reasons, entity.ExclusionMaxPositionsReached)
	}
	if !agent.SubscribedToCategory(signal.Category) {
		reasons = append(reasons, entity.ExclusionCategoryMismatch)
	}
	if !agent.SubscribedToSymbol(signal.Symbol) {
		reasons = append(reasons, entity.ExclusionSymbolNotSubscribed)
	}

	return reasons
}

// newDisposition snapshots the agent's configuration into a fresh disposition
// so later agent changes do not alter this record.
func (s *broadcastService) newDisposition(agent *entity.Agent, signal *entity.Signal) *entity.AgentSignalDisposition {
	return &entity.AgentSignalDisposition{
		SignalID:       signal.ID,
		AgentID:        agent.ID,
		AgentName:      agent.Name,
		AgentCategory:  strings.Join(agent.Categories, ","),
		AgentRiskLevel: agent.RiskLevel,
		AgentBudget:    agent.Budget,
		AgentStatus:    agent.Status,
		Symbol:         signal.Symbol,
		Recommendation: signal.Recommendation,
		ProcessedAt:    time.Now(),
	}
}
