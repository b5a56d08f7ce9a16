package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// UnifiedOrder is the single payment order record shared by every trade
// scene. orderState and paymentState only ever move together through the
// ledger's transition functions.
type UnifiedOrder struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scene            enums.TradeScene   `gorm:"column:scene;type:trade_scene;not null"`
	BuyerID          uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID         uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	PaymentProfileID uuid.UUID          `gorm:"column:payment_profile_id;type:uuid;not null"`
	AmountCny        types.Amount       `gorm:"column:amount_cny;type:text;not null"`
	PreferredRail    enums.PaymentRail  `gorm:"column:preferred_rail;type:payment_rail;not null"`
	OrderState       enums.OrderState   `gorm:"column:order_state;type:order_state;not null;default:'CREATED'"`
	PaymentState     enums.PaymentState `gorm:"column:payment_state;type:payment_state;not null;default:'UNPAID'"`
	PolicyGroupID    string             `gorm:"column:policy_group_id;not null"`
	Metadata         types.JSONMap      `gorm:"column:metadata;type:jsonb;serializer:json"`
	RiskAction       enums.RiskAction   `gorm:"column:risk_action;type:risk_action;not null;default:'ALLOW'"`
	RiskReasons      types.StringSlice  `gorm:"column:risk_reasons;type:jsonb;serializer:json"`
	LatestProofID    *uuid.UUID         `gorm:"column:latest_proof_id;type:uuid"`
	ProofAttempts    int                `gorm:"column:proof_attempts;not null;default:0"`
	AcceptedAt       *time.Time         `gorm:"column:accepted_at"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CancelledAt      *time.Time         `gorm:"column:cancelled_at"`
	DisputedAt       *time.Time         `gorm:"column:disputed_at"`
	ExpiredAt        *time.Time         `gorm:"column:expired_at"`
	ExpiresAt        time.Time          `gorm:"column:expires_at;not null;index"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsUnlockReady reports whether the purchased entitlement may be
// released. Always recomputed from current state, never cached.
func (o *UnifiedOrder) IsUnlockReady() bool {
	if o.PaymentState != enums.PaymentStatePaidVerified {
		return false
	}
	return o.OrderState == enums.OrderStateFulfilling || o.OrderState == enums.OrderStateCompleted
}
