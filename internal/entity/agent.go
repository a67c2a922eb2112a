package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Agent lifecycle statuses. Only running agents receive signals.
const (
	AgentStatusActive  = "active"
	AgentStatusRunning = "running"
	AgentStatusPaused  = "paused"
	AgentStatusStopped = "stopped"
)

// Agent is an independently-configured trading agent. The agent-management
// subsystem owns these rows; this pipeline only reads them.
type Agent struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"not null" json:"name"`
	Status            string         `gorm:"type:varchar(20);not null" json:"status"`
	RiskLevel         string         `gorm:"type:varchar(20)" json:"risk_level"`
	Budget            float64        `gorm:"not null" json:"budget"`
	Categories        pq.StringArray `gorm:"type:text[]" json:"categories"`
	Symbols           pq.StringArray `gorm:"type:text[]" json:"symbols"`
	MaxOpenPositions  int            `gorm:"not null" json:"max_open_positions"`
	OpenPositions     int            `gorm:"not null" json:"open_positions"`
	AvailableBalance  float64        `gorm:"not null" json:"available_balance"`
	MinWinProbability float64        `json:"min_win_probability"`
	MinRiskReward     float64        `json:"min_risk_reward"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// TableName specifies the table name for the Agent model.
func (Agent) TableName() string {
	return "agents"
}

// SubscribedToCategory reports whether the agent trades the given category.
// An empty category list means the agent accepts every category.
func (a *Agent) SubscribedToCategory(category string) bool {
	if len(a.Categories) == 0 {
		return true
	}
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// SubscribedToSymbol reports whether the agent trades the given symbol.
// An empty symbol list means the agent accepts every symbol.
func (a *Agent) SubscribedToSymbol(symbol string) bool {
	if len(a.Symbols) == 0 {
		return true
	}
	for _, s := range a.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
