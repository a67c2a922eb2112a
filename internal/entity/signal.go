package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Trading signal recommendations.
const (
	RecommendationBuy  = "BUY"
	RecommendationSell = "SELL"
	RecommendationHold = "HOLD"
)

// Signal is one aggregated consensus recommendation for a symbol. Signals are
// append-only: agent outcomes are recorded as AgentSignalDisposition rows
// keyed by SignalID, never by mutating the signal itself.
type Signal struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol            string         `gorm:"not null;index" json:"symbol"`
	Category          string         `gorm:"type:varchar(50)" json:"category"`
	Recommendation    string         `gorm:"type:varchar(10);not null" json:"recommendation"`
	Confidence        float64        `gorm:"not null" json:"confidence"`
	Reasoning         string         `gorm:"type:text" json:"reasoning"`
	Price             float64        `json:"price"`
	TargetPrice       *float64       `json:"target_price,omitempty"`
	StopLoss          *float64       `json:"stop_loss,omitempty"`
	VotesFor          int            `gorm:"not null" json:"votes_for"`
	VotesAgainst      int            `gorm:"not null" json:"votes_against"`
	VotesNeutral      int            `gorm:"not null" json:"votes_neutral"`
	ConsensusAchieved bool           `gorm:"not null" json:"consensus_achieved"`
	Votes             datatypes.JSON `gorm:"type:jsonb" json:"votes"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for the Signal model.
func (Signal) TableName() string {
	return "signals"
}
