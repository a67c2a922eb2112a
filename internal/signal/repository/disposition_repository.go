package repository

import (
	"context"
	"time"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/dto"

	"gorm.io/gorm"
)

// DispositionRepository defines the signal-service view of the disposition
// log: the broadcaster appends rows, the operational API reads them. Status
// advancement belongs to the executor.
type DispositionRepository interface {
	Create(ctx context.Context, disp *entity.AgentSignalDisposition) error
	FindBySignalID(ctx context.Context, signalID string) ([]entity.AgentSignalDisposition, error)
	FindByAgent(ctx context.Context, filter dto.DispositionFilter) ([]entity.AgentSignalDisposition, error)
	CountProcessedSince(ctx context.Context, since time.Time) (int64, error)
	CountStatusSince(ctx context.Context, status string, since time.Time) (int64, error)
	CountExecutedSince(ctx context.Context, since time.Time) (int64, error)
	ExclusionReasonStats(ctx context.Context) ([]dto.ExclusionStat, error)
}

// NewDispositionRepository creates a new GORM-based disposition repository.
func NewDispositionRepository(db *gorm.DB) DispositionRepository {
	return &dispositionRepository{db: db}
}

type dispositionRepository struct {
	db *gorm.DB
}

// Create persists a new disposition record. The (signal_id, agent_id) unique
// index rejects duplicate classification of the same pair.
func (r *dispositionRepository) Create(ctx context.Context, disp *entity.AgentSignalDisposition) error {
	return r.db.WithContext(ctx).Create(disp).Error
}

// FindBySignalID retrieves all dispositions recorded for one signal.
func (r *dispositionRepository) FindBySignalID(ctx context.Context, signalID string) ([]entity.AgentSignalDisposition, error) {
	var disps []entity.AgentSignalDisposition
	if err := r.db.WithContext(ctx).Where("signal_id = ?", signalID).Order("agent_id asc").Find(&disps).Error; err != nil {
		return nil, err
	}
	return disps, nil
}

// FindByAgent retrieves an agent's disposition history, newest first.
func (r *dispositionRepository) FindByAgent(ctx context.Context, filter dto.DispositionFilter) ([]entity.AgentSignalDisposition, error) {
	var disps []entity.AgentSignalDisposition

	query := r.db.WithContext(ctx).Where("agent_id = ?", filter.AgentID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.From != nil {
		query = query.Where("processed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("processed_at <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("processed_at desc").Find(&disps).Error; err != nil {
		return nil, err
	}
	return disps, nil
}

// CountProcessedSince counts dispositions processed at or after the given time.
func (r *dispositionRepository) CountProcessedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AgentSignalDisposition{}).
		Where("processed_at >= ?", since).Count(&count).Error
	return count, err
}

// CountStatusSince counts dispositions with the given status processed at or
// after the given time.
func (r *dispositionRepository) CountStatusSince(ctx context.Context, status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AgentSignalDisposition{}).
		Where("status = ? AND processed_at >= ?", status, since).Count(&count).Error
	return count, err
}

// CountExecutedSince counts executions completed at or after the given time.
func (r *dispositionRepository) CountExecutedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AgentSignalDisposition{}).
		Where("status = ? AND executed_at >= ?", entity.DispositionExecuted, since).Count(&count).Error
	return count, err
}

// ExclusionReasonStats aggregates recorded exclusion reasons across all
// EXCLUDED dispositions, most frequent first.
func (r *dispositionRepository) ExclusionReasonStats(ctx context.Context) ([]dto.ExclusionStat, error) {
	var stats []dto.ExclusionStat
	err := r.db.WithContext(ctx).Raw(`
		SELECT unnest(exclusion_reasons) AS reason, count(*) AS count
		FROM agent_signal_dispositions
		WHERE status = ?
		GROUP BY reason
		ORDER BY count DESC`, entity.DispositionExcluded).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
