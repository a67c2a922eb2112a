package entity

import "time"

// ExecutionQueueEntry is the payload carried on the execution queue for one
// validated (signal, agent) pair. The disposition row remains the source of
// truth for state; the queue entry is only a work-dispatch hint.
type ExecutionQueueEntry struct {
	SignalID   string    `json:"signal_id"`
	AgentID    uint      `json:"agent_id"`
	Symbol     string    `json:"symbol"`
	Category   string    `json:"category"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
}
