package dto

import "time"

// Pipeline health status labels.
const (
	HealthStatusHealthy  = "HEALTHY"
	HealthStatusDegraded = "DEGRADED"
	HealthStatusCritical = "CRITICAL"
)

// StageStatus is the health of one pipeline stage.
type StageStatus struct {
	Stage  string `json:"stage"`
	Score  int    `json:"score"`
	Max    int    `json:"max"`
	Detail string `json:"detail"`
}

// PipelineHealth is a point-in-time snapshot of pipeline activity.
type PipelineHealth struct {
	Score                 int           `json:"score"`
	Status                string        `json:"status"`
	SignalsLastHour       int64         `json:"signals_last_hour"`
	DispositionsLast10Min int64         `json:"dispositions_last_10min"`
	ExecutionsLast10Min   int64         `json:"executions_last_10min"`
	QueueLength           int64         `json:"queue_length"`
	Stages                []StageStatus `json:"stages"`
	Recommendations       []string      `json:"recommendations"`
	GeneratedAt           time.Time     `json:"generated_at"`
}
