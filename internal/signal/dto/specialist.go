package dto

import (
	"encoding/json"
	"time"
)

// MarketWindow identifies the slice of market history a specialist is asked
// to analyze. Market data itself is fetched by the specialist.
type MarketWindow struct {
	Symbol      string    `json:"symbol"`
	Category    string    `json:"category"`
	Timeframe   string    `json:"timeframe"`
	RequestedAt time.Time `json:"requested_at"`
}

// SpecialistResult is the raw output of one specialist for one market window.
// The recommendation field may be absent and the reasoning may contradict it;
// the vote reconciler turns this into a usable vote.
type SpecialistResult struct {
	Recommendation string          `json:"recommendation,omitempty"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	TargetPrice    *float64        `json:"target_price,omitempty"`
	StopLoss       *float64        `json:"stop_loss,omitempty"`
	Price          float64         `json:"price,omitempty"`
	PatternPayload json.RawMessage `json:"pattern_payload,omitempty"`
}

// SpecialistVote is a reconciled vote, ready for aggregation. It is embedded
// in the Signal's vote breakdown and never persisted on its own.
type SpecialistVote struct {
	Specialist     string          `json:"specialist"`
	Recommendation string          `json:"recommendation"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	TargetPrice    *float64        `json:"target_price,omitempty"`
	StopLoss       *float64        `json:"stop_loss,omitempty"`
	Price          float64         `json:"price,omitempty"`
	PatternPayload json.RawMessage `json:"pattern_payload,omitempty"`
}
