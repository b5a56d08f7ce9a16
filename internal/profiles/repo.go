package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
)

// Repository is the payment profile storage surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *models.PaymentProfile) (*models.PaymentProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentProfile, error)
	FindByOwnerAndPolicy(ctx context.Context, ownerID uuid.UUID, policyGroupID string) (*models.PaymentProfile, error)
	UpdateRails(ctx context.Context, id uuid.UUID, profile *models.PaymentProfile) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a profiles repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile *models.PaymentProfile) (*models.PaymentProfile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentProfile, error) {
	var profile models.PaymentProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindByOwnerAndPolicy(ctx context.Context, ownerID uuid.UUID, policyGroupID string) (*models.PaymentProfile, error) {
	var profile models.PaymentProfile
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND policy_group_id = ?", ownerID, policyGroupID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpdateRails(ctx context.Context, id uuid.UUID, profile *models.PaymentProfile) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"kyc_tier": profile.KycTier,
			"rails":    &profile.Rails,
		}).Error
}
