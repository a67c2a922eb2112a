package common

const (
	// RedisStreamSignalExecution is the default execution queue stream.
	RedisStreamSignalExecution = "signal.execution"

	RedisStreamGroup    = "executor-group"
	RedisStreamConsumer = "executor-consumer"
)

// ExecutionStream returns the execution queue stream for a category.
// Categories without a dedicated stream share the default stream.
func ExecutionStream(category string) string {
	if category == "" {
		return RedisStreamSignalExecution
	}
	return RedisStreamSignalExecution + "." + category
}
