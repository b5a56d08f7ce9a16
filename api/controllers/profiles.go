package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/api/responses"
	"github.com/unimaker/paygate/api/validators"
	"github.com/unimaker/paygate/internal/profiles"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
	"github.com/unimaker/paygate/pkg/types"
)

type ensureProfilePayload struct {
	OwnerID       string `json:"ownerId" validate:"required,uuid"`
	PolicyGroupID string `json:"policyGroupId"`
	KycTier       string `json:"kycTier" validate:"required"`

	Rails struct {
		WechatQr          *string `json:"wechatQr"`
		AlipayQr          *string `json:"alipayQr"`
		WalletAddress     *string `json:"walletAddress"`
		CreditCardEnabled bool    `json:"creditCardEnabled"`
	} `json:"rails" validate:"required"`
}

// profileSummary is what registration returns. It deliberately omits
// the rails themselves; reveal is the only way to read them back.
type profileSummary struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.UUID     `json:"ownerId"`
	PolicyGroupID string        `json:"policyGroupId"`
	KycTier       enums.KycTier `json:"kycTier"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type revealPayload struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	BuyerID string `json:"buyerId" validate:"required,uuid"`
}

// ProfileEnsure registers or refreshes a seller's payment profile.
func ProfileEnsure(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		var payload ensureProfilePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tier, err := enums.ParseKycTier(payload.KycTier)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kyc tier"))
			return
		}

		profile, err := svc.EnsureProfile(ctx, profiles.EnsureProfileInput{
			OwnerID:       uuid.MustParse(payload.OwnerID),
			PolicyGroupID: payload.PolicyGroupID,
			KycTier:       tier,
			Rails: types.PaymentRails{
				WechatQr:          payload.Rails.WechatQr,
				AlipayQr:          payload.Rails.AlipayQr,
				WalletAddress:     payload.Rails.WalletAddress,
				CreditCardEnabled: payload.Rails.CreditCardEnabled,
			},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, profileSummary{
			ID:            profile.ID,
			OwnerID:       profile.OwnerID,
			PolicyGroupID: profile.PolicyGroupID,
			KycTier:       profile.KycTier,
			CreatedAt:     profile.CreatedAt,
			UpdatedAt:     profile.UpdatedAt,
		})
	}
}

// PaymentReveal grants the buyer an order-scoped view of the seller's
// rails. Repeated calls inside the token window return the same snapshot.
func PaymentReveal(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		var payload revealPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.RevealForOrder(ctx, uuid.MustParse(payload.OrderID), uuid.MustParse(payload.BuyerID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"accessToken":    result.AccessToken,
			"expiresAt":      result.ExpiresAt,
			"order":          orderToView(result.Order),
			"paymentProfile": result.Profile,
		})
	}
}
