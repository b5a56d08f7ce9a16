package verification

import (
	"regexp"
	"strings"

	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	"github.com/unimaker/paygate/pkg/types"
)

// Reason codes produced by the automatic rule pass.
const (
	ReasonAmountMismatch    = "paid_amount_mismatch"
	ReasonChannelMismatch   = "channel_rail_mismatch"
	ReasonTradeRefMalformed = "trade_ref_malformed"
	ReasonAmountMissing     = "paid_amount_missing"
	ReasonChannelMissing    = "channel_missing"
)

// tradeRefPattern accepts the transaction reference shapes the BYOP
// channels emit: long digit runs or channel order numbers.
var tradeRefPattern = regexp.MustCompile(`^[0-9A-Za-z\-_]{8,64}$`)

// Outcome is the result of one automatic rule pass over a proof.
type Outcome struct {
	State           enums.ProofVerificationState
	Confidence      float64
	ReasonCodes     []string
	ExtractedFields types.JSONMap
}

// EvaluateRules runs the automatic checks for a submitted proof against
// its order. High-confidence agreement passes, high-confidence
// contradiction rejects, anything partial goes to manual review.
func EvaluateRules(order *models.UnifiedOrder, proof *models.PaymentProof) Outcome {
	reasons := []string{}
	extracted := types.JSONMap{}
	mismatch := false
	incomplete := false

	ref := strings.TrimSpace(proof.ProofRef)
	extracted["proof_ref"] = ref
	if !tradeRefPattern.MatchString(ref) {
		reasons = append(reasons, ReasonTradeRefMalformed)
		mismatch = true
	}

	if proof.PaidAmount == nil {
		reasons = append(reasons, ReasonAmountMissing)
		incomplete = true
	} else {
		extracted["paid_amount_cny"] = proof.PaidAmount.String()
		if !proof.PaidAmount.Equal(order.AmountCny) {
			reasons = append(reasons, ReasonAmountMismatch)
			mismatch = true
		}
	}

	expectedChannel, byop := order.PreferredRail.ByopChannel()
	if proof.Channel == nil {
		if byop {
			reasons = append(reasons, ReasonChannelMissing)
			incomplete = true
		}
	} else {
		extracted["channel"] = proof.Channel.String()
		if byop && *proof.Channel != expectedChannel {
			reasons = append(reasons, ReasonChannelMismatch)
			mismatch = true
		}
	}

	switch {
	case mismatch:
		return Outcome{
			State:           enums.ProofVerificationStateRejected,
			Confidence:      0.95,
			ReasonCodes:     reasons,
			ExtractedFields: extracted,
		}
	case incomplete:
		return Outcome{
			State:           enums.ProofVerificationStateReviewRequired,
			Confidence:      0.5,
			ReasonCodes:     reasons,
			ExtractedFields: extracted,
		}
	default:
		return Outcome{
			State:           enums.ProofVerificationStatePassed,
			Confidence:      0.98,
			ReasonCodes:     reasons,
			ExtractedFields: extracted,
		}
	}
}
