package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"golang-signal-pipeline/internal/executor/config"
	"golang-signal-pipeline/internal/executor/service"
	"golang-signal-pipeline/pkg/common"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/utils"
)

// RedisConsumer manages the consumption of execution entries from the Redis
// streams this worker is configured for.
type RedisConsumer struct {
	cfg             *config.Config
	redisClient     *redis.Client
	executorService service.ExecutorService
	logger          *logger.Logger
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	executorService service.ExecutorService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:             cfg,
		redisClient:     redisClient,
		executorService: executorService,
		logger:          log,
		stopChan:        make(chan struct{}),
	}
}

// Streams returns the execution streams this worker consumes: the dedicated
// streams for its configured categories, or the shared default stream when no
// categories are configured.
func (c *RedisConsumer) Streams() []string {
	if len(c.cfg.Executor.Categories) == 0 {
		return []string{common.RedisStreamSignalExecution}
	}
	streams := make([]string, 0, len(c.cfg.Executor.Categories))
	for _, category := range c.cfg.Executor.Categories {
		streams = append(streams, common.ExecutionStream(category))
	}
	return streams
}

// Start begins the consumer's processing loops: one read loop per stream plus
// a ticker-driven reclaim loop that picks up entries delivered but never
// acknowledged (worker crash, storage error mid-execution).
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started", logger.Field("streams", c.Streams()))
	for _, stream := range c.Streams() {
		stream := stream
		c.registerStreamHandler(ctx, stream, c.cfg.Executor.StreamReadTimeout)
		c.registerTickerHandler(ctx, stream, c.cfg.Executor.StreamRetryInterval, c.cfg.Executor.StreamReadTimeout)
	}
}

func (c *RedisConsumer) registerStreamHandler(ctx context.Context, streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				c.executorService.ProcessTask(ctxTimeout, streamName)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) registerTickerHandler(ctx context.Context, streamName string, interval, timeout time.Duration) {
	c.logger.Info("Registering reclaim handler",
		logger.Field("stream", streamName),
		logger.Field("interval", interval))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				c.executorService.ProcessRetries(ctxTimeout, streamName)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Reclaim handler stopping due to context cancellation", logger.Field("stream", streamName))
				return
			case <-c.stopChan:
				c.logger.Info("Reclaim handler stopping", logger.Field("stream", streamName))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
