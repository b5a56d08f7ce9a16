package enums

import "fmt"

// PaymentState tracks payment progress for a unified order.
type PaymentState string

const (
	PaymentStateUnpaid         PaymentState = "UNPAID"
	PaymentStateProofPending   PaymentState = "PROOF_PENDING"
	PaymentStatePaidUnverified PaymentState = "PAID_UNVERIFIED"
	PaymentStatePaidVerified   PaymentState = "PAID_VERIFIED"
	PaymentStateFailed         PaymentState = "FAILED"
)

var validPaymentStates = []PaymentState{
	PaymentStateUnpaid,
	PaymentStateProofPending,
	PaymentStatePaidUnverified,
	PaymentStatePaidVerified,
	PaymentStateFailed,
}

// String implements fmt.Stringer.
func (p PaymentState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentState.
func (p PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentState converts raw input into a PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	for _, candidate := range validPaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
