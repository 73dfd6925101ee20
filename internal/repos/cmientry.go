package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/types"
)

type CMIEntryRepo interface {
	GetByKey(ctx context.Context, tx *gorm.DB, userID, courseID uint, key string) (*types.CMIEntry, error)
	GetByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) ([]*types.CMIEntry, error)
	// Upsert inserts the entry or, on the (user, course, key) unique
	// constraint, overwrites the value and timestamp in place. Last writer
	// wins; there is no optimistic concurrency token.
	Upsert(ctx context.Context, tx *gorm.DB, entry *types.CMIEntry) error
}

type cmiEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCMIEntryRepo(db *gorm.DB, baseLog *logger.Logger) CMIEntryRepo {
	return &cmiEntryRepo{db: db, log: baseLog.With("repo", "CMIEntryRepo")}
}

func (r *cmiEntryRepo) GetByKey(ctx context.Context, tx *gorm.DB, userID, courseID uint, key string) (*types.CMIEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.CMIEntry
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND cmi_key = ?", userID, courseID, key).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *cmiEntryRepo) GetByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) ([]*types.CMIEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entries []*types.CMIEntry
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *cmiEntryRepo) Upsert(ctx context.Context, tx *gorm.DB, entry *types.CMIEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	entry.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "cmi_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"cmi_value", "updated_at"}),
		}).
		Create(entry).Error
}
