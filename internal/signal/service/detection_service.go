package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/config"
	"golang-signal-pipeline/internal/signal/dto"
	"golang-signal-pipeline/internal/signal/repository"
	"golang-signal-pipeline/pkg/logger"
	"golang-signal-pipeline/pkg/telegram"
	"golang-signal-pipeline/pkg/utils"
)

// DetectionService runs the scheduled analysis loop: it asks every specialist
// for a vote, reconciles and aggregates them, and hands signals that clear
// the confidence gate to the broadcaster.
type DetectionService interface {
	Start(ctx context.Context) error
	Run(ctx context.Context)
	Detect(ctx context.Context, symbol, category string) (*entity.Signal, error)
}

// NewDetectionService creates a new DetectionService.
func NewDetectionService(
	cfg *config.Config,
	log *logger.Logger,
	specialists []repository.SpecialistRepository,
	aggregator ConsensusAggregator,
	signalRepo repository.SignalRepository,
	broadcaster BroadcastService,
	notifier telegram.Notifier,
) DetectionService {
	return &detectionService{
		cfg:         cfg,
		log:         log,
		specialists: specialists,
		aggregator:  aggregator,
		signalRepo:  signalRepo,
		broadcaster: broadcaster,
		notifier:    notifier,
	}
}

type detectionService struct {
	cfg         *config.Config
	log         *logger.Logger
	specialists []repository.SpecialistRepository
	aggregator  ConsensusAggregator
	signalRepo  repository.SignalRepository
	broadcaster BroadcastService
	notifier    telegram.Notifier
	cron        *cron.Cron
}

// Start registers the detection schedule and begins running it.
func (s *detectionService) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.Detection.CronExpression, func() {
		s.Run(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	utils.GoSafe(func() {
		<-ctx.Done()
		s.cron.Stop()
		s.log.Info("Detection scheduler stopped")
	})

	s.log.Info("Detection scheduler started",
		logger.StringField("cron", s.cfg.Detection.CronExpression),
		logger.IntField("watchlist", len(s.cfg.Detection.Watchlist)),
		logger.IntField("specialists", len(s.specialists)))
	return nil
}

// Run performs one detection pass over the configured watchlist.
func (s *detectionService) Run(ctx context.Context) {
	for _, item := range s.cfg.Detection.Watchlist {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Detect(ctx, item.Symbol, item.Category); err != nil {
			s.log.Error("Detection failed",
				logger.ErrorField(err),
				logger.StringField("symbol", item.Symbol))
		}
	}
}

// Detect gathers votes for one symbol, aggregates them and broadcasts the
// resulting signal if it clears the confidence gate. Returns (nil, nil) when
// the signal was discarded by the gate.
func (s *detectionService) Detect(ctx context.Context, symbol, category string) (*entity.Signal, error) {
	window := dto.MarketWindow{
		Symbol:      symbol,
		Category:    category,
		Timeframe:   s.cfg.Detection.Timeframe,
		RequestedAt: time.Now(),
	}

	votes := s.collectVotes(ctx, window)

	signal, err := s.aggregator.Aggregate(symbol, category, votes)
	if err != nil {
		return nil, err
	}

	if !s.aggregator.MeetsConfidenceGate(signal) {
		s.log.Info("Signal discarded by confidence gate",
			logger.StringField("symbol", symbol),
			logger.StringField("recommendation", signal.Recommendation),
			logger.Field("confidence", signal.Confidence))
		return nil, nil
	}

	if err := s.signalRepo.Create(ctx, signal); err != nil {
		return nil, err
	}

	s.log.Info("Signal broadcast starting",
		logger.StringField("signal_id", signal.ID),
		logger.StringField("symbol", symbol),
		logger.StringField("recommendation", signal.Recommendation),
		logger.Field("confidence", signal.Confidence),
		logger.Field("consensus", signal.ConsensusAchieved))

	if err := s.notifier.SendMessage(telegram.FormatSignalMessage(signal)); err != nil {
		s.log.Error("Failed to send signal notification", logger.ErrorField(err))
	}

	if err := s.broadcaster.Broadcast(ctx, signal); err != nil {
		return nil, err
	}
	return signal, nil
}

// collectVotes fans out to every specialist concurrently and waits for all of
// them. A slow specialist is cut off by the per-specialist timeout and its
// failure becomes a HOLD default vote, so one straggler cannot block
// consensus indefinitely.
func (s *detectionService) collectVotes(ctx context.Context, window dto.MarketWindow) []dto.SpecialistVote {
	votes := make([]dto.SpecialistVote, len(s.specialists))

	var wg sync.WaitGroup
	for i, specialist := range s.specialists {
		i, specialist := i, specialist
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.cfg.Detection.SpecialistTimeout)
			defer cancel()

			result, err := specialist.Analyze(callCtx, window)
			if err != nil {
				s.log.Warn("Specialist analysis failed, substituting HOLD",
					logger.ErrorField(err),
					logger.StringField("specialist", specialist.Name()),
					logger.StringField("symbol", window.Symbol))
			}
			votes[i] = ReconcileVote(specialist.Name(), result, err)
		})
	}
	wg.Wait()

	return votes
}
