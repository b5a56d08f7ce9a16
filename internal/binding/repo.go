package binding

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/unimaker/paygate/pkg/db/models"
)

// Repository defines persistence for the target binding index.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, binding *models.TargetBinding) error
	Find(ctx context.Context, targetKey string) (*models.TargetBinding, error)
	Delete(ctx context.Context, targetKey string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a binding repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes the binding, replacing any existing row for the key.
// Last write wins.
func (r *repository) Upsert(ctx context.Context, binding *models.TargetBinding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"order_id", "updated_at"}),
		}).
		Create(binding).Error
}

func (r *repository) Find(ctx context.Context, targetKey string) (*models.TargetBinding, error) {
	var binding models.TargetBinding
	err := r.db.WithContext(ctx).Where("target_key = ?", targetKey).First(&binding).Error
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *repository) Delete(ctx context.Context, targetKey string) error {
	return r.db.WithContext(ctx).Where("target_key = ?", targetKey).Delete(&models.TargetBinding{}).Error
}
