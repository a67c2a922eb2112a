package entity

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Disposition statuses. EXCLUDED and REJECTED are decided by the broadcaster;
// EXECUTED, FAILED and FILTERED are decided by the executor. Every status
// except VALIDATED is terminal.
const (
	DispositionExcluded  = "EXCLUDED"
	DispositionValidated = "VALIDATED"
	DispositionRejected  = "REJECTED"
	DispositionExecuted  = "EXECUTED"
	DispositionFailed    = "FAILED"
	DispositionFiltered  = "FILTERED"
)

// Exclusion reasons recorded on EXCLUDED dispositions. All applicable reasons
// are recorded, not just the first one found.
const (
	ExclusionAgentNotRunning     = "agent_not_running"
	ExclusionInsufficientBalance = "insufficient_balance"
	ExclusionMaxPositionsReached = "max_positions_reached"
	ExclusionCategoryMismatch    = "category_mismatch"
	ExclusionSymbolNotSubscribed = "symbol_not_subscribed"
)

// AgentSignalDisposition records one agent's journey for one signal. Agent
// configuration is denormalized at classification time so later agent changes
// do not retroactively alter the audit trail. At most one row exists per
// (signal, agent) pair and its status only ever advances.
type AgentSignalDisposition struct {
	ID                int64          `gorm:"primaryKey" json:"id"`
	SignalID          string         `gorm:"type:uuid;not null;uniqueIndex:idx_signal_agent;index" json:"signal_id"`
	AgentID           uint           `gorm:"not null;uniqueIndex:idx_signal_agent;index:idx_agent_processed" json:"agent_id"`
	AgentName         string         `json:"agent_name"`
	AgentCategory     string         `gorm:"type:varchar(50)" json:"agent_category"`
	AgentRiskLevel    string         `gorm:"type:varchar(20)" json:"agent_risk_level"`
	AgentBudget       float64        `json:"agent_budget"`
	AgentStatus       string         `gorm:"type:varchar(20)" json:"agent_status"`
	Symbol            string         `gorm:"not null" json:"symbol"`
	Recommendation    string         `gorm:"type:varchar(10);not null" json:"recommendation"`
	Status            string         `gorm:"type:varchar(10);not null" json:"status"`
	ExclusionReasons  pq.StringArray `gorm:"type:text[]" json:"exclusion_reasons,omitempty"`
	ValidationScore   *float64       `json:"validation_score,omitempty"`
	WinProbability    *float64       `json:"win_probability,omitempty"`
	RiskReward        *float64       `json:"risk_reward,omitempty"`
	ExecutionPrice    *float64       `json:"execution_price,omitempty"`
	ExecutionQuantity *float64       `json:"execution_quantity,omitempty"`
	OrderRef          *string        `json:"order_ref,omitempty"`
	ErrorMessage      sql.NullString `json:"error_message,omitempty"`
	ProcessedAt       time.Time      `gorm:"not null;index:idx_agent_processed" json:"processed_at"`
	ExecutedAt        sql.NullTime   `json:"executed_at,omitempty"`
}

// TableName specifies the table name for the AgentSignalDisposition model.
func (AgentSignalDisposition) TableName() string {
	return "agent_signal_dispositions"
}

// dispositionRank orders statuses along the state machine. Terminal statuses
// share the highest rank so no terminal status can replace another.
var dispositionRank = map[string]int{
	DispositionValidated: 1,
	DispositionExcluded:  2,
	DispositionRejected:  2,
	DispositionExecuted:  2,
	DispositionFailed:    2,
	DispositionFiltered:  2,
}

// IsTerminalDisposition reports whether status permits no further transitions.
func IsTerminalDisposition(status string) bool {
	return dispositionRank[status] == 2
}

// CanTransitionDisposition reports whether a disposition may advance from one
// status to another. Only VALIDATED -> {EXECUTED, FAILED, FILTERED} is a legal
// in-place advancement; all other statuses are written once and final.
func CanTransitionDisposition(from, to string) bool {
	if from != DispositionValidated {
		return false
	}
	switch to {
	case DispositionExecuted, DispositionFailed, DispositionFiltered:
		return true
	}
	return false
}
