package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// PaymentProfile holds a seller's payout credentials. Rails never leave
// the registry except through the order-scoped reveal.
type PaymentProfile struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_payment_profiles_owner_policy"`
	PolicyGroupID string             `gorm:"column:policy_group_id;not null;uniqueIndex:ux_payment_profiles_owner_policy"`
	KycTier       enums.KycTier      `gorm:"column:kyc_tier;type:kyc_tier;not null;default:'L0'"`
	Rails         types.PaymentRails `gorm:"column:rails;type:jsonb;serializer:json"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
