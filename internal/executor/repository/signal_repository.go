package repository

import (
	"context"

	"golang-signal-pipeline/internal/entity"

	"gorm.io/gorm"
)

// SignalRepository is the executor's read-only view of broadcast signals.
type SignalRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Signal, error)
}

// NewSignalRepository creates a new GORM-based signal repository.
func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

type signalRepository struct {
	db *gorm.DB
}

// FindByID retrieves a signal by its identifier.
func (r *signalRepository) FindByID(ctx context.Context, id string) (*entity.Signal, error) {
	var signal entity.Signal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&signal).Error; err != nil {
		return nil, err
	}
	return &signal, nil
}
