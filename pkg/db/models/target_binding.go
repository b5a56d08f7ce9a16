package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetBinding maps an opaque purchase target to its current order.
// Last write wins; the binding carries no authority over order state.
type TargetBinding struct {
	TargetKey string    `gorm:"column:target_key;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
