package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unimaker/paygate/api/responses"
	"github.com/unimaker/paygate/api/validators"
	"github.com/unimaker/paygate/internal/orders"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/types"
)

type createOrderPayload struct {
	Scene         string         `json:"scene" validate:"required"`
	BuyerID       string         `json:"buyerId" validate:"required,uuid"`
	SellerID      string         `json:"sellerId" validate:"required,uuid"`
	AmountCny     string         `json:"amountCny" validate:"required"`
	PreferredRail string         `json:"preferredRail" validate:"required"`
	PolicyGroupID string         `json:"policyGroupId"`
	TargetKey     string         `json:"targetKey"`
	BuyerKycTier  string         `json:"buyerKycTier"`
	Metadata      map[string]any `json:"metadata"`

	RiskSignals struct {
		ProfileChangedRecently bool `json:"profileChangedRecently"`
		ComplaintBurst         bool `json:"complaintBurst"`
		CrossRegionAnomaly     bool `json:"crossRegionAnomaly"`
	} `json:"riskSignals"`
}

type actorPayload struct {
	ActorID string `json:"actorId" validate:"required,uuid"`
	Reason  string `json:"reason"`
}

// OrderCreate registers a new payment order after the risk gate.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		scene, err := enums.ParseTradeScene(payload.Scene)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scene"))
			return
		}
		rail, err := enums.ParsePaymentRail(payload.PreferredRail)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid preferred rail"))
			return
		}
		amount, err := types.ParseAmount(payload.AmountCny)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		buyerTier := enums.KycTierL0
		if payload.BuyerKycTier != "" {
			buyerTier, err = enums.ParseKycTier(payload.BuyerKycTier)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer kyc tier"))
				return
			}
		}

		order, err := svc.Create(ctx, orders.CreateInput{
			Scene:                  scene,
			BuyerID:                uuid.MustParse(payload.BuyerID),
			SellerID:               uuid.MustParse(payload.SellerID),
			AmountCny:              amount,
			PreferredRail:          rail,
			PolicyGroupID:          payload.PolicyGroupID,
			TargetKey:              validators.SanitizeString(payload.TargetKey, 256),
			Metadata:               payload.Metadata,
			BuyerKycTier:           buyerTier,
			ProfileChangedRecently: payload.RiskSignals.ProfileChangedRecently,
			ComplaintBurst:         payload.RiskSignals.ComplaintBurst,
			CrossRegionAnomaly:     payload.RiskSignals.CrossRegionAnomaly,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orderToView(order))
	}
}

// OrderDetail returns one order by id. Rails are never part of the view.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderToView(order))
	}
}

// OrderAccept moves the order into the payable window. Seller only.
func OrderAccept(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload actorPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Accept(ctx, orderID, uuid.MustParse(payload.ActorID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderToView(order))
	}
}

// OrderCancel cancels a non-terminal order.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload actorPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Cancel(ctx, orderID, uuid.MustParse(payload.ActorID), validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderToView(order))
	}
}

// OrderDispute freezes the order pending review. Buyer or seller only.
func OrderDispute(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload actorPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Dispute(ctx, orderID, uuid.MustParse(payload.ActorID), validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderToView(order))
	}
}

// OrderResolve closes a disputed order in the buyer's favor.
func OrderResolve(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload actorPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.ResolveDispute(ctx, orderID, uuid.MustParse(payload.ActorID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderToView(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid timestamp, expected RFC3339")
	}
	return &t, nil
}
