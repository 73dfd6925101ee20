package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/types"
)

type AgentRepo interface {
	// CreateIfAbsent inserts the agent unless the mailbox is already known.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, agent *types.Agent) error
	GetByMbox(ctx context.Context, tx *gorm.DB, mbox string) (*types.Agent, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Agent, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{db: db, log: baseLog.With("repo", "AgentRepo")}
}

func (r *agentRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, agent *types.Agent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mbox"}},
			DoNothing: true,
		}).
		Create(agent).Error
}

func (r *agentRepo) GetByMbox(ctx context.Context, tx *gorm.DB, mbox string) (*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var agent types.Agent
	if err := transaction.WithContext(ctx).
		Where("mbox = ?", mbox).
		First(&agent).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Agent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var agents []*types.Agent
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Agent{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
