package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/executor/config"
	"golang-signal-pipeline/internal/executor/dto"
	"golang-signal-pipeline/internal/executor/repository"
	"golang-signal-pipeline/pkg/common"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/telegram"
)

// ExecutorService turns validated queue entries into venue orders with
// at-most-once execution per (signal, agent) pair. The queue has
// at-least-once delivery semantics; the disposition status check-and-set is
// what de-duplicates.
type ExecutorService interface {
	ProcessTask(ctx context.Context, stream string)
	ProcessRetries(ctx context.Context, stream string)
	Execute(ctx context.Context, entry entity.ExecutionQueueEntry) error
}

// NewExecutorService creates a new ExecutorService.
func NewExecutorService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	dispositionRepo repository.DispositionRepository,
	signalRepo repository.SignalRepository,
	venueRepo repository.VenueRepository,
	notifier telegram.Notifier,
) ExecutorService {
	allowed := make(map[string]bool, len(cfg.Executor.AllowedSymbols))
	for _, s := range cfg.Executor.AllowedSymbols {
		allowed[s] = true
	}

	secondsPerOrder := time.Minute / time.Duration(cfg.Executor.OrderMaxPerMinute)

	return &executorService{
		cfg:             cfg,
		log:             log,
		redisClient:     redisClient,
		dispositionRepo: dispositionRepo,
		signalRepo:      signalRepo,
		venueRepo:       venueRepo,
		notifier:        notifier,
		allowedSymbols:  allowed,
		orderLimiter:    rate.NewLimiter(rate.Every(secondsPerOrder), 1),
	}
}

type executorService struct {
	cfg             *config.Config
	log             *logger.Logger
	redisClient     *redis.Client
	dispositionRepo repository.DispositionRepository
	signalRepo      repository.SignalRepository
	venueRepo       repository.VenueRepository
	notifier        telegram.Notifier
	allowedSymbols  map[string]bool
	orderLimiter    *rate.Limiter
}

// ProcessTask dequeues and executes a single entry from the given stream.
func (s *executorService) ProcessTask(ctx context.Context, stream string) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{stream, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()
	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]

	payload, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		s.ackNDel(ctx, stream, message.ID)
		return
	}

	var entry entity.ExecutionQueueEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		s.log.Error("Failed to unmarshal queue entry", logger.ErrorField(err), logger.Field("message_id", message.ID))
		// Acknowledge to prevent reprocessing of a malformed message.
		s.ackNDel(ctx, stream, message.ID)
		return
	}

	// Static symbol filter: entries outside this worker's allowlist are
	// redispatched for a differently-configured worker pool.
	if len(s.allowedSymbols) > 0 && !s.allowedSymbols[entry.Symbol] {
		s.redispatch(ctx, stream, entry)
		s.ackNDel(ctx, stream, message.ID)
		return
	}

	if err := s.Execute(ctx, entry); err != nil {
		// Storage errors leave the message unacknowledged in the group's
		// pending list; the reclaim loop picks it up. Acknowledging here
		// would silently drop work.
		s.log.Error("Failed to execute queue entry",
			logger.ErrorField(err),
			logger.StringField("signal_id", entry.SignalID),
			logger.Field("agent_id", entry.AgentID))
		return
	}

	s.ackNDel(ctx, stream, message.ID)
}

// ProcessRetries reclaims entries that were delivered but never acknowledged,
// typically after a storage error or a worker crash mid-execution. XReadGroup
// with ">" never revisits the pending list, so without this loop an
// unacknowledged entry would be stranded forever. Entries that keep failing
// are marked FAILED rather than reclaimed indefinitely.
func (s *executorService) ProcessRetries(ctx context.Context, stream string) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Executor.StreamMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.log.Error("Failed to claim pending entry", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}

	if len(msgs) == 0 {
		return
	}
	msg := msgs[0]

	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.log.Error("Failed to get pending info", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	if len(pendingInfo) == 0 {
		s.log.Warn("Pending entry not found, but exists on xautoclaim",
			logger.StringField("stream", stream),
			logger.Field("message_id", msg.ID))
		return
	}

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", msg.ID))
		s.ackNDel(ctx, stream, msg.ID)
		return
	}

	var entry entity.ExecutionQueueEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		s.log.Error("Failed to unmarshal reclaimed entry", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		s.ackNDel(ctx, stream, msg.ID)
		return
	}

	if pendingInfo[0].RetryCount >= int64(s.cfg.Executor.StreamMaxRetry) {
		s.log.Error("Pending entry delivery count exceeded, recording failure",
			logger.StringField("stream", stream),
			logger.StringField("signal_id", entry.SignalID),
			logger.Field("agent_id", entry.AgentID),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
		if err := s.failExhausted(ctx, entry, fmt.Sprintf("execution abandoned after %d deliveries", pendingInfo[0].RetryCount)); err != nil {
			// Leave the entry pending so the next reclaim pass retries the write.
			s.log.Error("Failed to record exhausted entry", logger.ErrorField(err),
				logger.StringField("signal_id", entry.SignalID))
			return
		}
		s.ackNDel(ctx, stream, msg.ID)
		return
	}

	if len(s.allowedSymbols) > 0 && !s.allowedSymbols[entry.Symbol] {
		s.redispatch(ctx, stream, entry)
		s.ackNDel(ctx, stream, msg.ID)
		return
	}

	if err := s.Execute(ctx, entry); err != nil {
		s.log.Error("Failed to execute reclaimed entry",
			logger.ErrorField(err),
			logger.StringField("signal_id", entry.SignalID),
			logger.Field("agent_id", entry.AgentID))
		return
	}
	s.ackNDel(ctx, stream, msg.ID)
}

// Execute runs one queue entry to a terminal outcome. Entries whose
// disposition already left VALIDATED are dropped without side effects, which
// makes replaying the same entry a no-op.
func (s *executorService) Execute(ctx context.Context, entry entity.ExecutionQueueEntry) error {
	disp, err := s.dispositionRepo.FindBySignalAndAgent(ctx, entry.SignalID, entry.AgentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("Queue entry without disposition, dropping",
				logger.StringField("signal_id", entry.SignalID),
				logger.Field("agent_id", entry.AgentID))
			return nil
		}
		return err
	}

	// Check-before-write: the disposition table is the authority on state,
	// the queue is only a dispatch hint.
	if disp.Status != entity.DispositionValidated {
		s.log.Debug("Disposition already advanced, dropping duplicate delivery",
			logger.StringField("signal_id", entry.SignalID),
			logger.Field("agent_id", entry.AgentID),
			logger.StringField("status", disp.Status))
		return nil
	}

	signal, err := s.signalRepo.FindByID(ctx, entry.SignalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.finish(ctx, disp, entity.DispositionFailed, nil, "signal record missing")
		}
		return err
	}

	if signal.Price <= 0 {
		return s.finish(ctx, disp, entity.DispositionFailed, nil, "signal has no reference price")
	}
	quantity := disp.AgentBudget / signal.Price

	if err := s.orderLimiter.Wait(ctx); err != nil {
		return err
	}

	result, err := s.venueRepo.PlaceOrder(ctx, dto.OrderRequest{
		Symbol:   signal.Symbol,
		Side:     signal.Recommendation,
		Quantity: quantity,
		Price:    signal.Price,
	})
	switch {
	case errors.Is(err, repository.ErrSymbolNotSupported):
		// Expected venue/data-source symbol mismatch, not a failure.
		return s.finish(ctx, disp, entity.DispositionFiltered, nil, err.Error())
	case err != nil:
		// Genuine failure. Not retried automatically; operators re-submit
		// deliberately if desired.
		return s.finish(ctx, disp, entity.DispositionFailed, nil, err.Error())
	default:
		return s.finish(ctx, disp, entity.DispositionExecuted, result, "")
	}
}

// finish advances the disposition to its terminal status via compare-and-set
// and notifies on the outcome. A lost race means another worker already
// executed the pair; this worker records nothing.
func (s *executorService) finish(ctx context.Context, disp *entity.AgentSignalDisposition, status string, result *dto.OrderResult, errMsg string) error {
	update := &entity.AgentSignalDisposition{
		SignalID: disp.SignalID,
		AgentID:  disp.AgentID,
		Status:   status,
	}
	if result != nil {
		update.ExecutionPrice = &result.Price
		update.ExecutionQuantity = &result.Quantity
		update.OrderRef = &result.OrderRef
		update.ExecutedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	if errMsg != "" {
		update.ErrorMessage = sql.NullString{String: errMsg, Valid: true}
	}

	advanced, err := s.dispositionRepo.AdvanceStatus(ctx, update, entity.DispositionValidated)
	if err != nil {
		return err
	}
	if !advanced {
		s.log.Warn("Disposition advanced by another worker, dropping outcome",
			logger.StringField("signal_id", disp.SignalID),
			logger.Field("agent_id", disp.AgentID),
			logger.StringField("status", status))
		return nil
	}

	s.log.Info("Execution outcome recorded",
		logger.StringField("signal_id", disp.SignalID),
		logger.Field("agent_id", disp.AgentID),
		logger.StringField("status", status))

	update.AgentName = disp.AgentName
	update.Symbol = disp.Symbol
	update.Recommendation = disp.Recommendation
	if msg := telegram.FormatExecutionMessage(update); msg != "" {
		if err := s.notifier.SendMessage(msg); err != nil {
			s.log.Error("Failed to send execution notification", logger.ErrorField(err))
		}
	}
	return nil
}

// redispatch hands an entry this worker is not configured for to another
// pool, up to the dispatch-attempt cap. With no differently-configured pool
// on the stream the entry would otherwise bounce between workers forever, so
// past the cap the pair is marked FAILED instead.
func (s *executorService) redispatch(ctx context.Context, stream string, entry entity.ExecutionQueueEntry) {
	if entry.Attempt >= s.cfg.Executor.MaxDispatchAttempts {
		s.log.Error("Entry exceeded dispatch attempts, recording failure",
			logger.StringField("signal_id", entry.SignalID),
			logger.Field("agent_id", entry.AgentID),
			logger.StringField("symbol", entry.Symbol),
			logger.IntField("attempt", entry.Attempt))
		if err := s.failExhausted(ctx, entry, fmt.Sprintf("no worker accepted symbol %s after %d dispatch attempts", entry.Symbol, entry.Attempt)); err != nil {
			s.log.Error("Failed to record undispatchable entry", logger.ErrorField(err),
				logger.StringField("signal_id", entry.SignalID))
		}
		return
	}
	s.requeue(ctx, stream, entry)
}

// failExhausted advances a still-VALIDATED pair to FAILED when its queue entry
// can no longer be delivered or executed. Pairs that already reached a
// terminal status are left alone.
func (s *executorService) failExhausted(ctx context.Context, entry entity.ExecutionQueueEntry, reason string) error {
	disp, err := s.dispositionRepo.FindBySignalAndAgent(ctx, entry.SignalID, entry.AgentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if disp.Status != entity.DispositionValidated {
		return nil
	}
	return s.finish(ctx, disp, entity.DispositionFailed, nil, reason)
}

// requeue puts an entry this worker is not configured for back on its stream.
func (s *executorService) requeue(ctx context.Context, stream string, entry entity.ExecutionQueueEntry) {
	entry.Attempt++
	payload, err := json.Marshal(entry)
	if err != nil {
		s.log.Error("Failed to marshal requeued entry", logger.ErrorField(err))
		return
	}
	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: s.cfg.Redis.StreamMaxLen,
	}).Err(); err != nil {
		s.log.Error("Failed to requeue entry", logger.ErrorField(err),
			logger.StringField("signal_id", entry.SignalID))
	}
}

// ackNDel acknowledges a message and deletes it from the stream.
func (s *executorService) ackNDel(ctx context.Context, stream, messageID string) {
	if err := s.redisClient.XAck(ctx, stream, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge message", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, stream, messageID).Err(); err != nil {
		s.log.Error("Failed to delete message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}
