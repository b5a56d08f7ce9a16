package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/api/responses"
	"github.com/unimaker/paygate/api/validators"
	"github.com/unimaker/paygate/internal/orders"
	"github.com/unimaker/paygate/internal/verification"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
)

type manualVerifyPayload struct {
	ProofID     string   `json:"proofId" validate:"required,uuid"`
	Verdict     string   `json:"verdict" validate:"required"`
	ReasonCodes []string `json:"reasonCodes"`
	Confidence  *float64 `json:"confidence"`
	ReviewerID  string   `json:"reviewerId" validate:"required"`
}

// ReviewQueue lists proofs awaiting a human verdict. Ops-facing.
func ReviewQueue(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		var states []enums.ProofVerificationState
		if raw := strings.TrimSpace(r.URL.Query().Get("states")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				state, err := enums.ParseProofVerificationState(strings.TrimSpace(part))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid verification state"))
					return
				}
				states = append(states, state)
			}
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListForReview(ctx, states, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": reviewItemsToView(items)})
	}
}

// ProofVerify applies a reviewer verdict to an order's proof.
func ProofVerify(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload manualVerifyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		verdict, err := enums.ParseProofVerificationState(payload.Verdict)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid verdict"))
			return
		}

		order, ver, err := svc.VerifyManually(ctx, orders.ManualVerifyInput{
			OrderID:     orderID,
			ProofID:     uuid.MustParse(payload.ProofID),
			Verdict:     verdict,
			ReasonCodes: payload.ReasonCodes,
			Confidence:  payload.Confidence,
			ReviewerID:  validators.SanitizeString(payload.ReviewerID, 128),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order":        orderToView(order),
			"verification": verificationToView(ver),
		})
	}
}
