package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// ProofVerification is the one-to-one verdict record for a payment
// proof. Only the verification pipeline and manual reviewer actions
// mutate it.
type ProofVerification struct {
	ProofID         uuid.UUID                      `gorm:"column:proof_id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                      `gorm:"column:order_id;type:uuid;not null;index"`
	State           enums.ProofVerificationState   `gorm:"column:state;type:proof_verification_state;not null;default:'PENDING'"`
	Method          *enums.ProofVerificationMethod `gorm:"column:method;type:proof_verification_method"`
	Confidence      *float64                       `gorm:"column:confidence"`
	ReasonCodes     types.StringSlice              `gorm:"column:reason_codes;type:jsonb;serializer:json"`
	ExtractedFields types.JSONMap                  `gorm:"column:extracted_fields;type:jsonb;serializer:json"`
	ReviewedBy      *string                        `gorm:"column:reviewed_by"`
	ReviewedAt      *time.Time                     `gorm:"column:reviewed_at"`
	CreatedAt       time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                      `gorm:"column:updated_at;autoUpdateTime"`
}
