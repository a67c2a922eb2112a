package repository

import (
	"context"

	"golang-signal-pipeline/internal/entity"

	"gorm.io/gorm"
)

// AgentRepository defines read-only access to the agent directory. Agents are
// owned by the agent-management subsystem.
type AgentRepository interface {
	FindAll(ctx context.Context) ([]entity.Agent, error)
	FindByID(ctx context.Context, id uint) (*entity.Agent, error)
}

// NewAgentRepository creates a new GORM-based agent repository.
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

type agentRepository struct {
	db *gorm.DB
}

// FindAll retrieves the whole agent population, including paused and stopped
// agents. The broadcaster records an EXCLUDED disposition for agents that are
// not running, so they must be enumerated too.
func (r *agentRepository) FindAll(ctx context.Context) ([]entity.Agent, error) {
	var agents []entity.Agent
	if err := r.db.WithContext(ctx).Order("id asc").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

// FindByID retrieves one agent by its identifier.
func (r *agentRepository) FindByID(ctx context.Context, id uint) (*entity.Agent, error) {
	var agent entity.Agent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}
