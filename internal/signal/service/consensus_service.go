package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
)

// ConsensusAggregator combines reconciled specialist votes into one signal.
type ConsensusAggregator interface {
	Aggregate(symbol, category string, votes []dto.SpecialistVote) (*entity.Signal, error)
	MeetsConfidenceGate(signal *entity.Signal) bool
}

// NewConsensusAggregator creates a new aggregator with the given thresholds.
func NewConsensusAggregator(cfg config.Consensus) ConsensusAggregator {
	return &consensusAggregator{cfg: cfg}
}

type consensusAggregator struct {
	cfg config.Consensus
}

// Aggregate derives the overall recommendation by majority among non-HOLD
// votes, ties broken toward HOLD. The returned signal is in-memory only;
// persistence happens once the decision to broadcast is made.
func (a *consensusAggregator) Aggregate(symbol, category string, votes []dto.SpecialistVote) (*entity.Signal, error) {
	if len(votes) == 0 {
		return nil, fmt.Errorf("no votes to aggregate for %s", symbol)
	}

	var buys, sells, holds int
	for _, v := range votes {
		switch v.Recommendation {
		case entity.RecommendationBuy:
			buys++
		case entity.RecommendationSell:
			sells++
		default:
			holds++
		}
	}

	recommendation := entity.RecommendationHold
	winner, loser := 0, 0
	switch {
	case buys > sells:
		recommendation = entity.RecommendationBuy
		winner, loser = buys, sells
	case sells > buys:
		recommendation = entity.RecommendationSell
		winner, loser = sells, buys
	}

	consensus := recommendation != entity.RecommendationHold &&
		winner > a.cfg.MinVotes &&
		winner-loser > a.cfg.Margin

	votesFor, votesAgainst := winner, loser
	if recommendation == entity.RecommendationHold {
		votesFor, votesAgainst = 0, 0
	}

	votesJSON, err := json.Marshal(votes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vote breakdown: %w", err)
	}

	signal := &entity.Signal{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		Category:          category,
		Recommendation:    recommendation,
		Confidence:        a.weightedConfidence(recommendation, votes),
		Reasoning:         summarizeVotes(recommendation, votes),
		Price:             referencePrice(votes),
		TargetPrice:       meanTarget(recommendation, votes, func(v dto.SpecialistVote) *float64 { return v.TargetPrice }),
		StopLoss:          meanTarget(recommendation, votes, func(v dto.SpecialistVote) *float64 { return v.StopLoss }),
		VotesFor:          votesFor,
		VotesAgainst:      votesAgainst,
		VotesNeutral:      holds,
		ConsensusAchieved: consensus,
		Votes:             votesJSON,
		CreatedAt:         time.Now(),
	}

	return signal, nil
}

// MeetsConfidenceGate reports whether a signal clears the global minimum
// confidence threshold. Signals below it are discarded and never broadcast;
// this is the primary volume control for the whole pipeline. HOLD results
// never clear the gate regardless of confidence: a confident "do nothing" is
// not actionable and must not reach agents or the execution queue.
func (a *consensusAggregator) MeetsConfidenceGate(signal *entity.Signal) bool {
	return signal.Recommendation != entity.RecommendationHold &&
		signal.Confidence >= a.cfg.MinConfidence
}

// weightedConfidence combines per-specialist confidences using the configured
// weights (default 1.0). For a directional recommendation only the winning
// side's voters contribute; a HOLD result averages everyone.
func (a *consensusAggregator) weightedConfidence(recommendation string, votes []dto.SpecialistVote) float64 {
	var sum, weightSum float64
	for _, v := range votes {
		if recommendation != entity.RecommendationHold && v.Recommendation != recommendation {
			continue
		}
		w, ok := a.cfg.Weights[v.Specialist]
		if !ok {
			w = 1.0
		}
		sum += w * v.Confidence
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	// Specialist confidences are 0-100, overall confidence is 0.0-1.0.
	return sum / weightSum / 100
}

// referencePrice averages the non-zero prices reported by specialists.
func referencePrice(votes []dto.SpecialistVote) float64 {
	var sum float64
	var n int
	for _, v := range votes {
		if v.Price > 0 {
			sum += v.Price
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// meanTarget averages a price suggestion over the winning side's voters.
func meanTarget(recommendation string, votes []dto.SpecialistVote, pick func(dto.SpecialistVote) *float64) *float64 {
	if recommendation == entity.RecommendationHold {
		return nil
	}
	var sum float64
	var n int
	for _, v := range votes {
		if v.Recommendation != recommendation {
			continue
		}
		if p := pick(v); p != nil && *p > 0 {
			sum += *p
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// summarizeVotes builds a human-readable reasoning summary for the signal.
func summarizeVotes(recommendation string, votes []dto.SpecialistVote) string {
	var agree int
	lines := make([]string, 0, len(votes))
	for _, v := range votes {
		if v.Recommendation == recommendation {
			agree++
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%.0f%%)", v.Specialist, v.Recommendation, v.Confidence))
	}
	return fmt.Sprintf("%s from %d/%d specialists. %s", recommendation, agree, len(votes), strings.Join(lines, "; "))
}
