package dto

import "golang-signal-pipeline/internal/entity"

// SignalDispositionsResponse groups a signal's dispositions by terminal status.
type SignalDispositionsResponse struct {
	SignalID     string                                     `json:"signal_id"`
	Total        int                                        `json:"total"`
	Dispositions map[string][]entity.AgentSignalDisposition `json:"dispositions"`
}

// ExclusionStat is one aggregate exclusion-reason count.
type ExclusionStat struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// DrainResponse reports the result of an administrative queue drain.
type DrainResponse struct {
	Cleared int64 `json:"cleared"`
}
