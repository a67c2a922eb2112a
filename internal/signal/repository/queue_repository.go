package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/pkg/common"
)

// QueueRepository is the signal-service view of the execution queue: the
// broadcaster pushes validated pairs, the operational API inspects and drains.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry entity.ExecutionQueueEntry) error
	Len(ctx context.Context) (int64, error)
	Drain(ctx context.Context) (int64, error)
}

// NewQueueRepository creates a Redis-stream-backed queue repository. Entries
// for categories in dedicatedCategories go to that category's own stream so
// dedicated worker pools do not contend with the shared pool.
func NewQueueRepository(redisClient *redis.Client, dedicatedCategories []string, streamMaxLen int64) QueueRepository {
	dedicated := make(map[string]bool, len(dedicatedCategories))
	for _, c := range dedicatedCategories {
		dedicated[c] = true
	}
	return &queueRepository{
		redisClient:  redisClient,
		dedicated:    dedicated,
		streamMaxLen: streamMaxLen,
	}
}

type queueRepository struct {
	redisClient  *redis.Client
	dedicated    map[string]bool
	streamMaxLen int64
}

// streams returns the default stream plus every dedicated category stream.
func (r *queueRepository) streams() []string {
	names := []string{common.RedisStreamSignalExecution}
	for c := range r.dedicated {
		names = append(names, common.ExecutionStream(c))
	}
	return names
}

// Enqueue appends an entry to its category's stream.
func (r *queueRepository) Enqueue(ctx context.Context, entry entity.ExecutionQueueEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}

	stream := common.RedisStreamSignalExecution
	if r.dedicated[entry.Category] {
		stream = common.ExecutionStream(entry.Category)
	}

	return r.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: r.streamMaxLen,
	}).Err()
}

// Len returns the total number of entries across all execution streams.
func (r *queueRepository) Len(ctx context.Context) (int64, error) {
	var total int64
	for _, stream := range r.streams() {
		n, err := r.redisClient.XLen(ctx, stream).Result()
		if err != nil && err != redis.Nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Drain removes all queued entries and returns how many were cleared. In-flight
// executions already read by a worker are not interrupted.
func (r *queueRepository) Drain(ctx context.Context) (int64, error) {
	var cleared int64
	for _, stream := range r.streams() {
		n, err := r.redisClient.XLen(ctx, stream).Result()
		if err != nil && err != redis.Nil {
			return cleared, err
		}
		if n == 0 {
			continue
		}
		if err := r.redisClient.XTrimMaxLen(ctx, stream, 0).Err(); err != nil {
			return cleared, err
		}
		cleared += n
	}
	return cleared, nil
}
