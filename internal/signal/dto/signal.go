package dto

import "time"

// SignalFilter holds the query parameters for listing broadcast signals.
type SignalFilter struct {
	Symbol         string
	Recommendation string
	From           *time.Time
	To             *time.Time
	Limit          int
}

// DispositionFilter holds the query parameters for an agent's disposition history.
type DispositionFilter struct {
	AgentID uint
	Status  string
	Symbol  string
	From    *time.Time
	To      *time.Time
	Limit   int
}
