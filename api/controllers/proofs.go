package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/api/responses"
	"github.com/unimaker/paygate/api/validators"
	"github.com/unimaker/paygate/internal/orders"
	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/types"
)

type submitProofPayload struct {
	BuyerID    string         `json:"buyerId" validate:"required,uuid"`
	ProofType  string         `json:"proofType"`
	ProofRef   string         `json:"proofRef" validate:"required"`
	Channel    string         `json:"channel"`
	TradeNo    *string        `json:"tradeNo"`
	PaidAmount string         `json:"paidAmountCny"`
	PaidAt     string         `json:"paidAt"`
	ProofHash  *string        `json:"proofHash"`
	Metadata   map[string]any `json:"metadata"`
}

type submissionView struct {
	Order        *orderView        `json:"order"`
	Proof        *proofView        `json:"proof"`
	Verification *verificationView `json:"verification"`
}

// ProofSubmit records a buyer's proof of payment and runs the synchronous
// verification pass. The verdict is already applied when this returns.
func ProofSubmit(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload submitProofPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.SubmitProofInput{
			OrderID:   orderID,
			BuyerID:   uuid.MustParse(payload.BuyerID),
			ProofType: payload.ProofType,
			ProofRef:  validators.SanitizeString(payload.ProofRef, 128),
			TradeNo:   payload.TradeNo,
			ProofHash: payload.ProofHash,
			Metadata:  payload.Metadata,
		}
		if payload.Channel != "" {
			channel, err := enums.ParseByopChannel(payload.Channel)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
				return
			}
			input.Channel = &channel
		}
		if payload.PaidAmount != "" {
			amount, err := types.ParseAmount(payload.PaidAmount)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input.PaidAmount = &amount
		}
		paidAt, err := parseOptionalTime(payload.PaidAt)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.PaidAt = paidAt

		result, err := svc.SubmitProof(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, submissionView{
			Order:        orderToView(result.Order),
			Proof:        proofToView(result.Proof),
			Verification: verificationToView(result.Verification),
		})
	}
}

// ProofLatest returns the order's current proof with its verification,
// so buyers can poll the verdict after a submission.
func ProofLatest(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		proof, ver, err := svc.GetLatestProof(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"proof":        proofToView(proof),
			"verification": verificationToView(ver),
		})
	}
}
