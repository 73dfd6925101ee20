package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/types"
)

// StatementFilter narrows a statement query. Zero-value fields are not
// applied; Since/Until bound the event timestamp inclusively.
type StatementFilter struct {
	ActorMbox  string
	VerbID     string
	ActivityID string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

type StatementRepo interface {
	Create(ctx context.Context, tx *gorm.DB, statement *types.Statement) (*types.Statement, error)
	// GetByID returns only non-voided statements; nil on miss.
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Statement, error)
	// Query returns non-voided statements ordered by stored time descending.
	Query(ctx context.Context, tx *gorm.DB, filter StatementFilter) ([]*types.Statement, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type statementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatementRepo(db *gorm.DB, baseLog *logger.Logger) StatementRepo {
	return &statementRepo{db: db, log: baseLog.With("repo", "StatementRepo")}
}

func (r *statementRepo) Create(ctx context.Context, tx *gorm.DB, statement *types.Statement) (*types.Statement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(statement).Error; err != nil {
		return nil, err
	}
	return statement, nil
}

func (r *statementRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Statement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var statement types.Statement
	if err := transaction.WithContext(ctx).
		Where("id = ? AND voided = ?", id, false).
		First(&statement).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &statement, nil
}

func (r *statementRepo) Query(ctx context.Context, tx *gorm.DB, filter StatementFilter) ([]*types.Statement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Where("voided = ?", false)
	if filter.ActorMbox != "" {
		query = query.Where("actor_mbox = ?", filter.ActorMbox)
	}
	if filter.VerbID != "" {
		query = query.Where("verb_id = ?", filter.VerbID)
	}
	if filter.ActivityID != "" {
		query = query.Where("object_id = ?", filter.ActivityID)
	}
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("timestamp <= ?", *filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var statements []*types.Statement
	if err := query.Order("stored DESC").Limit(limit).Find(&statements).Error; err != nil {
		return nil, err
	}
	return statements, nil
}

func (r *statementRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Statement{}).
		Where("voided = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
