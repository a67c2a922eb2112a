package repository

import (
	"context"
	"time"

	"golang-signal-pipeline/internal/entity"
	"golang-signal-pipeline/internal/signal/dto"

	"gorm.io/gorm"
)

// SignalRepository defines the interface for signal data operations. Signals
// are append-only; there is deliberately no update or delete method.
type SignalRepository interface {
	Create(ctx context.Context, signal *entity.Signal) error
	FindByID(ctx context.Context, id string) (*entity.Signal, error)
	Find(ctx context.Context, filter dto.SignalFilter) ([]entity.Signal, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// NewSignalRepository creates a new GORM-based signal repository.
func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

type signalRepository struct {
	db *gorm.DB
}

// Create persists a new signal record.
func (r *signalRepository) Create(ctx context.Context, signal *entity.Signal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

// FindByID retrieves a signal by its identifier.
func (r *signalRepository) FindByID(ctx context.Context, id string) (*entity.Signal, error) {
	var signal entity.Signal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&signal).Error; err != nil {
		return nil, err
	}
	return &signal, nil
}

// Find retrieves signals matching the given filter, newest first.
func (r *signalRepository) Find(ctx context.Context, filter dto.SignalFilter) ([]entity.Signal, error) {
	var signals []entity.Signal

	query := r.db.WithContext(ctx)
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Recommendation != "" {
		query = query.Where("recommendation = ?", filter.Recommendation)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("created_at desc").Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}

// CountSince counts signals created at or after the given time.
func (r *signalRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Signal{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
