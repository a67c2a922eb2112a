package service

import (
	"fmt"
	"strings"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/dto"
)

// Specialists are observed to default to HOLD even when their prose clearly
// argues a direction. The reconciler recovers a usable vote from the
// reasoning text: first explicit directive phrases, then keyword counting.
// This is keyword matching, not semantic understanding of the text; treat the
// recovered direction as a noisy approximation.

// directivePhrase maps an explicit phrase in the reasoning to a vote. Checked
// in order; first match wins.
type directivePhrase struct {
	phrase string
	vote   string
}

var directivePhrases = []directivePhrase{
	{"recommend sell", entity.RecommendationSell},
	{"recommend buy", entity.RecommendationBuy},
	{"recommendation: sell", entity.RecommendationSell},
	{"recommendation: buy", entity.RecommendationBuy},
	{"signal: sell", entity.RecommendationSell},
	{"signal: buy", entity.RecommendationBuy},
	{"suggest selling", entity.RecommendationSell},
	{"suggest buying", entity.RecommendationBuy},
	{"should sell", entity.RecommendationSell},
	{"should buy", entity.RecommendationBuy},
}

var bullishKeywords = []string{
	"bullish", "uptrend", "breakout", "accumulate", "oversold",
	"support holding", "higher high", "buying pressure", "upside",
}

var bearishKeywords = []string{
	"bearish", "downtrend", "breakdown", "distribute", "overbought",
	"resistance holding", "lower low", "selling pressure", "downside",
}

// ReconcileVote turns one specialist's raw output into a usable vote. A call
// error (including timeout) yields the HOLD failure default and never
// propagates into the aggregator.
func ReconcileVote(specialist string, result *dto.SpecialistResult, callErr error) dto.SpecialistVote {
	if callErr != nil || result == nil {
		reason := "analysis failed"
		if callErr != nil {
			reason = fmt.Sprintf("analysis failed: %v", callErr)
		}
		return dto.SpecialistVote{
			Specialist:     specialist,
			Recommendation: entity.RecommendationHold,
			Confidence:     0,
			Reasoning:      reason,
		}
	}

	vote := dto.SpecialistVote{
		Specialist:     specialist,
		Recommendation: normalizeRecommendation(result.Recommendation),
		Confidence:     result.Confidence,
		Reasoning:      result.Reasoning,
		TargetPrice:    result.TargetPrice,
		StopLoss:       result.StopLoss,
		Price:          result.Price,
		PatternPayload: result.PatternPayload,
	}

	// An explicit non-HOLD recommendation is used as-is.
	if vote.Recommendation != entity.RecommendationHold {
		return vote
	}

	vote.Recommendation = extractVoteFromReasoning(result.Reasoning)
	return vote
}

// normalizeRecommendation maps a raw recommendation field to one of the three
// votes. Absent or unrecognized values count as HOLD.
func normalizeRecommendation(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case entity.RecommendationBuy:
		return entity.RecommendationBuy
	case entity.RecommendationSell:
		return entity.RecommendationSell
	default:
		return entity.RecommendationHold
	}
}

// extractVoteFromReasoning recovers a direction from free-form reasoning text.
func extractVoteFromReasoning(reasoning string) string {
	text := strings.ToLower(reasoning)

	for _, d := range directivePhrases {
		if strings.Contains(text, d.phrase) {
			return d.vote
		}
	}

	return countKeywordVote(text)
}

// countKeywordVote counts bullish vs bearish keyword hits in the lowercased
// text. The side with strictly more hits wins; a tie, or no hits on either
// side, yields HOLD. Counting both sides avoids a systematic bullish bias
// when the text discusses both directions.
func countKeywordVote(text string) string {
	var bullish, bearish int
	for _, kw := range bullishKeywords {
		bullish += strings.Count(text, kw)
	}
	for _, kw := range bearishKeywords {
		bearish += strings.Count(text, kw)
	}

	switch {
	case bullish > bearish:
		return entity.RecommendationBuy
	case bearish > bullish:
		return entity.RecommendationSell
	default:
		return entity.RecommendationHold
	}
}
