// Package risk implements the pure pre-creation policy gate. Decisions
// are recomputed on every order creation attempt and never stored.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// highValueThreshold is the CNY amount above which buyers need full KYC.
var highValueThreshold = decimal.NewFromInt(5000)

// Soft signal reason codes. They flag an order for review without
// blocking creation.
const (
	ReasonProfileChangedRecently = "profile_changed_recently"
	ReasonComplaintBurst         = "complaint_burst_detected"
	ReasonCrossRegionAnomaly     = "cross_region_anomaly"
)

// Input carries everything a single evaluation needs. KYC tiers are
// supplied by the caller at evaluation time, not read from storage.
type Input struct {
	Scene                  enums.TradeScene
	AmountCny              types.Amount
	BuyerKycTier           enums.KycTier
	SellerKycTier          enums.KycTier
	ProfileChangedRecently bool
	ComplaintBurst         bool
	CrossRegionAnomaly     bool
}

// Decision is the computed outcome of one evaluation.
type Decision struct {
	Allow           bool
	Action          enums.RiskAction
	RequiredKycTier enums.KycTier
	Reasons         []string
}

// RequiredKycTier returns the minimum tier a party needs for the given
// scene and amount. Sellers always need L2 regardless of amount; the
// buyer threshold is scene-independent in practice, C2C_FIAT included.
func RequiredKycTier(scene enums.TradeScene, amountCny types.Amount, isSeller bool) enums.KycTier {
	if isSeller {
		return enums.KycTierL2
	}
	switch {
	case amountCny.Decimal().GreaterThan(highValueThreshold):
		return enums.KycTierL2
	case amountCny.IsPositive():
		return enums.KycTierL1
	default:
		return enums.KycTierL0
	}
}

// Evaluate computes the risk decision for one creation attempt. Both
// parties' KYC checks run even though either failure alone rejects, so
// the caller sees every failing reason at once. Soft signals append
// their reason codes independently; soft reasons without a hard reject
// yield REVIEW rather than ALLOW.
func Evaluate(input Input) Decision {
	requiredBuyer := RequiredKycTier(input.Scene, input.AmountCny, false)
	requiredSeller := RequiredKycTier(input.Scene, input.AmountCny, true)

	reasons := []string{}
	hardReject := false

	if !input.BuyerKycTier.AtLeast(requiredBuyer) {
		reasons = append(reasons, fmt.Sprintf("buyer_kyc_below_%s", requiredBuyer))
		hardReject = true
	}
	if !input.SellerKycTier.AtLeast(requiredSeller) {
		reasons = append(reasons, fmt.Sprintf("seller_kyc_below_%s", requiredSeller))
		hardReject = true
	}

	if input.ProfileChangedRecently {
		reasons = append(reasons, ReasonProfileChangedRecently)
	}
	if input.ComplaintBurst {
		reasons = append(reasons, ReasonComplaintBurst)
	}
	if input.CrossRegionAnomaly {
		reasons = append(reasons, ReasonCrossRegionAnomaly)
	}

	decision := Decision{
		RequiredKycTier: requiredBuyer,
		Reasons:         reasons,
	}

	switch {
	case hardReject:
		decision.Allow = false
		decision.Action = enums.RiskActionReject
	case len(reasons) > 0:
		decision.Allow = true
		decision.Action = enums.RiskActionReview
	default:
		decision.Allow = true
		decision.Action = enums.RiskActionAllow
	}
	return decision
}
