package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/enums"
)

// OrderCreatedEvent signals a newly allocated unified order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	Scene      enums.TradeScene `json:"scene"`
	BuyerID    uuid.UUID        `json:"buyer_id"`
	SellerID   uuid.UUID        `json:"seller_id"`
	AmountCny  string           `json:"amount_cny"`
	RiskAction enums.RiskAction `json:"risk_action"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// OrderAcceptedEvent is emitted when the seller accepts and the order
// starts awaiting payment.
type OrderAcceptedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	SellerID uuid.UUID `json:"seller_id"`
}

// ProofSubmittedEvent is emitted per payment proof submission attempt.
type ProofSubmittedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	ProofID  uuid.UUID `json:"proof_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	Attempt  int       `json:"attempt"`
	ProofRef string    `json:"proof_ref"`
}

// VerdictAppliedEvent is emitted when a verification verdict lands on
// the ledger. Stale verdicts never produce one.
type VerdictAppliedEvent struct {
	OrderID      uuid.UUID                      `json:"order_id"`
	ProofID      uuid.UUID                      `json:"proof_id"`
	Verdict      enums.ProofVerificationState   `json:"verdict"`
	Method       *enums.ProofVerificationMethod `json:"method,omitempty"`
	ReasonCodes  []string                       `json:"reason_codes,omitempty"`
	OrderState   enums.OrderState               `json:"order_state"`
	PaymentState enums.PaymentState             `json:"payment_state"`
}

// OrderCompletedEvent tells callers the entitlement may be released.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	UnlockReady bool      `json:"unlock_ready"`
}

// OrderCancelledEvent is emitted on caller-driven cancellation.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderExpiredEvent is emitted by the TTL sweep.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OrderDisputedEvent is emitted when a buyer or seller challenge lands.
type OrderDisputedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	RaisedBy   uuid.UUID `json:"raised_by"`
	DisputedAt time.Time `json:"disputed_at"`
}
