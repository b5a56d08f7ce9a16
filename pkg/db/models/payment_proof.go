package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// DefaultProofType is assumed when a submission carries no explicit type.
const DefaultProofType = "BYOP_RECEIPT_V1"

// PaymentProof is one buyer submission of out-of-band payment evidence.
// Proofs are immutable; a resubmission creates a new row and supersedes
// the prior one as the order's latest.
type PaymentProof struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID      uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	ProofType    string             `gorm:"column:proof_type;not null;default:'BYOP_RECEIPT_V1'"`
	ProofRef     string             `gorm:"column:proof_ref;not null"`
	Channel      *enums.ByopChannel `gorm:"column:channel;type:byop_channel"`
	TradeNoNorm  *string            `gorm:"column:trade_no_norm"`
	PaidAmount   *types.Amount      `gorm:"column:paid_amount_cny;type:text"`
	PaidAt       *time.Time         `gorm:"column:paid_at"`
	ProofHash    *string            `gorm:"column:proof_hash"`
	Metadata     types.JSONMap      `gorm:"column:metadata;type:jsonb;serializer:json"`
	SubmittedAt  time.Time          `gorm:"column:submitted_at;autoCreateTime"`
	Verification *ProofVerification `gorm:"foreignKey:ProofID;constraint:OnDelete:CASCADE"`
}
