package repository

import (
	"context"
	"fmt"

	"golang-signal-pipeline/internal/entity"

	"gorm.io/gorm"
)

// DispositionRepository is the executor's view of the disposition log. The
// disposition row is the source of truth for execution state; the queue only
// dispatches work.
type DispositionRepository interface {
	FindBySignalAndAgent(ctx context.Context, signalID string, agentID uint) (*entity.AgentSignalDisposition, error)
	AdvanceStatus(ctx context.Context, disp *entity.AgentSignalDisposition, from string) (bool, error)
}

// NewDispositionRepository creates a new GORM-based disposition repository.
func NewDispositionRepository(db *gorm.DB) DispositionRepository {
	return &dispositionRepository{db: db}
}

type dispositionRepository struct {
	db *gorm.DB
}

// FindBySignalAndAgent retrieves the disposition for one (signal, agent) pair.
func (r *dispositionRepository) FindBySignalAndAgent(ctx context.Context, signalID string, agentID uint) (*entity.AgentSignalDisposition, error) {
	var disp entity.AgentSignalDisposition
	if err := r.db.WithContext(ctx).
		Where("signal_id = ? AND agent_id = ?", signalID, agentID).
		First(&disp).Error; err != nil {
		return nil, err
	}
	return &disp, nil
}

// AdvanceStatus advances a disposition out of the given status with an
// optimistic compare-and-set: the UPDATE only applies while the row still has
// the expected status. Returns false when another worker advanced the row
// first, so racing workers agree that exactly one of them wins.
func (r *dispositionRepository) AdvanceStatus(ctx context.Context, disp *entity.AgentSignalDisposition, from string) (bool, error) {
	if !entity.CanTransitionDisposition(from, disp.Status) {
		return false, fmt.Errorf("illegal disposition transition %s -> %s", from, disp.Status)
	}

	result := r.db.WithContext(ctx).
		Model(&entity.AgentSignalDisposition{}).
		Where("signal_id = ? AND agent_id = ? AND status = ?", disp.SignalID, disp.AgentID, from).
		Updates(map[string]interface{}{
			"status":             disp.Status,
			"execution_price":    disp.ExecutionPrice,
			"execution_quantity": disp.ExecutionQuantity,
			"order_ref":          disp.OrderRef,
			"error_message":      disp.ErrorMessage,
			"executed_at":        disp.ExecutedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
