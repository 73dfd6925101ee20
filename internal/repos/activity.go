package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/types"
)

type ActivityRepo interface {
	// CreateIfAbsent inserts the activity unless its id is already present.
	// The conflict is resolved at the storage layer so two concurrent
	// ingestions of the same new activity cannot both insert.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, activity *types.Activity) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Activity, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Activity, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, activity *types.Activity) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(activity).Error
}

func (r *activityRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Activity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var activity types.Activity
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&activity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Activity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var activities []*types.Activity
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Activity{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
