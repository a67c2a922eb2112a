package service

import (
	"context"
	"math"

	"golang-signal-pipeline/internal/entity"
)

// ValidationResult is the outcome of the agent-level validation step, distinct
// from the global consensus gate.
type ValidationResult struct {
	Passed         bool
	Score          float64
	WinProbability float64
	RiskReward     float64
}

// AgentValidator decides whether a received signal is worth executing for one
// specific agent. Implementations may be rule-based or delegate to an
// agent-context model; either way the contract is a win probability and a
// risk/reward ratio checked against the agent's configured minimums.
type AgentValidator interface {
	Validate(ctx context.Context, agent *entity.Agent, signal *entity.Signal) (ValidationResult, error)
}

// NewRuleBasedValidator creates a validator that scores signals from the
// consensus strength and the signal's target/stop geometry.
func NewRuleBasedValidator() AgentValidator {
	return &ruleBasedValidator{}
}

type ruleBasedValidator struct{}

// Validate computes a win probability from the signal's confidence and vote
// margin, and a risk/reward ratio from the target and stop relative to the
// reference price. A missing target or stop skips the risk/reward check
// rather than rejecting outright.
func (v *ruleBasedValidator) Validate(ctx context.Context, agent *entity.Agent, signal *entity.Signal) (ValidationResult, error) {
	winProb := signal.Confidence * 100
	if !signal.ConsensusAchieved {
		winProb *= 0.8
	}

	rr, rrKnown := riskReward(signal)

	result := ValidationResult{
		WinProbability: winProb,
		RiskReward:     rr,
	}

	result.Score = winProb * 0.7
	if rrKnown {
		result.Score += math.Min(rr, 3) / 3 * 100 * 0.3
	}

	if winProb < agent.MinWinProbability {
		return result, nil
	}
	if rrKnown && agent.MinRiskReward > 0 && rr < agent.MinRiskReward {
		return result, nil
	}

	result.Passed = true
	return result, nil
}

// riskReward computes reward over risk from the signal's price geometry. The
// second return value is false when the geometry is incomplete or degenerate.
func riskReward(signal *entity.Signal) (float64, bool) {
	if signal.TargetPrice == nil || signal.StopLoss == nil || signal.Price <= 0 {
		return 0, false
	}

	var reward, risk float64
	switch signal.Recommendation {
	case entity.RecommendationBuy:
		reward = *signal.TargetPrice - signal.Price
		risk = signal.Price - *signal.StopLoss
	case entity.RecommendationSell:
		reward = signal.Price - *signal.TargetPrice
		risk = *signal.StopLoss - signal.Price
	default:
		return 0, false
	}

	if reward <= 0 || risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}
