package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// orderView is the wire shape of an order. Payment rails are never part
// of it; they only leave through the reveal endpoint.
type orderView struct {
	ID            uuid.UUID          `json:"id"`
	Scene         enums.TradeScene   `json:"scene"`
	BuyerID       uuid.UUID          `json:"buyerId"`
	SellerID      uuid.UUID          `json:"sellerId"`
	AmountCny     types.Amount       `json:"amountCny"`
	PreferredRail enums.PaymentRail  `json:"preferredRail"`
	OrderState    enums.OrderState   `json:"orderState"`
	PaymentState  enums.PaymentState `json:"paymentState"`
	PolicyGroupID string             `json:"policyGroupId"`
	RiskAction    enums.RiskAction   `json:"riskAction"`
	RiskReasons   []string           `json:"riskReasons,omitempty"`
	LatestProofID *uuid.UUID         `json:"latestProofId,omitempty"`
	ProofAttempts int                `json:"proofAttempts"`
	UnlockReady   bool               `json:"unlockReady"`
	AcceptedAt    *time.Time         `json:"acceptedAt,omitempty"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty"`
	CancelledAt   *time.Time         `json:"cancelledAt,omitempty"`
	DisputedAt    *time.Time         `json:"disputedAt,omitempty"`
	ExpiredAt     *time.Time         `json:"expiredAt,omitempty"`
	ExpiresAt     time.Time          `json:"expiresAt"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func orderToView(o *models.UnifiedOrder) *orderView {
	if o == nil {
		return nil
	}
	return &orderView{
		ID:            o.ID,
		Scene:         o.Scene,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		AmountCny:     o.AmountCny,
		PreferredRail: o.PreferredRail,
		OrderState:    o.OrderState,
		PaymentState:  o.PaymentState,
		PolicyGroupID: o.PolicyGroupID,
		RiskAction:    o.RiskAction,
		RiskReasons:   o.RiskReasons,
		LatestProofID: o.LatestProofID,
		ProofAttempts: o.ProofAttempts,
		UnlockReady:   o.IsUnlockReady(),
		AcceptedAt:    o.AcceptedAt,
		CompletedAt:   o.CompletedAt,
		CancelledAt:   o.CancelledAt,
		DisputedAt:    o.DisputedAt,
		ExpiredAt:     o.ExpiredAt,
		ExpiresAt:     o.ExpiresAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

type proofView struct {
	ID          uuid.UUID          `json:"id"`
	OrderID     uuid.UUID          `json:"orderId"`
	BuyerID     uuid.UUID          `json:"buyerId"`
	ProofType   string             `json:"proofType"`
	ProofRef    string             `json:"proofRef"`
	Channel     *enums.ByopChannel `json:"channel,omitempty"`
	TradeNo     *string            `json:"tradeNo,omitempty"`
	PaidAmount  *types.Amount      `json:"paidAmountCny,omitempty"`
	PaidAt      *time.Time         `json:"paidAt,omitempty"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

func proofToView(p *models.PaymentProof) *proofView {
	if p == nil {
		return nil
	}
	return &proofView{
		ID:          p.ID,
		OrderID:     p.OrderID,
		BuyerID:     p.BuyerID,
		ProofType:   p.ProofType,
		ProofRef:    p.ProofRef,
		Channel:     p.Channel,
		TradeNo:     p.TradeNoNorm,
		PaidAmount:  p.PaidAmount,
		PaidAt:      p.PaidAt,
		SubmittedAt: p.SubmittedAt,
	}
}

type verificationView struct {
	ProofID     uuid.UUID                      `json:"proofId"`
	OrderID     uuid.UUID                      `json:"orderId"`
	State       enums.ProofVerificationState   `json:"state"`
	Method      *enums.ProofVerificationMethod `json:"method,omitempty"`
	Confidence  *float64                       `json:"confidence,omitempty"`
	ReasonCodes []string                       `json:"reasonCodes,omitempty"`
	ReviewedBy  *string                        `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time                     `json:"reviewedAt,omitempty"`
	CreatedAt   time.Time                      `json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`
}

func verificationToView(v *models.ProofVerification) *verificationView {
	if v == nil {
		return nil
	}
	return &verificationView{
		ProofID:     v.ProofID,
		OrderID:     v.OrderID,
		State:       v.State,
		Method:      v.Method,
		Confidence:  v.Confidence,
		ReasonCodes: v.ReasonCodes,
		ReviewedBy:  v.ReviewedBy,
		ReviewedAt:  v.ReviewedAt,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

type reviewItemView struct {
	Order        *orderView        `json:"order"`
	Proof        *proofView        `json:"proof"`
	Verification *verificationView `json:"verification"`
}

func reviewItemsToView(items []verification.ReviewItem) []reviewItemView {
	out := make([]reviewItemView, 0, len(items))
	for i := range items {
		out = append(out, reviewItemView{
			Order:        orderToView(&items[i].Order),
			Proof:        proofToView(&items[i].Proof),
			Verification: verificationToView(&items[i].Verification),
		})
	}
	return out
}
