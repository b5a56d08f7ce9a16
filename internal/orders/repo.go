package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
)

// Repository defines persistence operations for the unified order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.UnifiedOrder) (*models.UnifiedOrder, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.UnifiedOrder, error)
	UpdateOrder(ctx context.Context, order *models.UnifiedOrder) error
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.UnifiedOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.UnifiedOrder) (*models.UnifiedOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.UnifiedOrder, error) {
	var order models.UnifiedOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.UnifiedOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// FindExpired lists orders past their TTL that the sweep may still
// expire. Disputed orders wait for resolution and are never swept.
func (r *repository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.UnifiedOrder, error) {
	sweepable := []enums.OrderState{
		enums.OrderStateCreated,
		enums.OrderStateAccepted,
		enums.OrderStateAwaitPay,
		enums.OrderStatePayProofSubmitted,
		enums.OrderStateFulfilling,
	}
	var orders []models.UnifiedOrder
	err := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Where("order_state IN ?", sweepable).
		Order("expires_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
