package enums

import "fmt"

// OrderState tracks the lifecycle of a unified order. It moves in lock-step
// with PaymentState; the two are only ever written together.
type OrderState string

const (
	OrderStateCreated           OrderState = "CREATED"
	OrderStateAccepted          OrderState = "ACCEPTED"
	OrderStateAwaitPay          OrderState = "AWAIT_PAY"
	OrderStatePayProofSubmitted OrderState = "PAY_PROOF_SUBMITTED"
	OrderStateFulfilling        OrderState = "FULFILLING"
	OrderStateCompleted         OrderState = "COMPLETED"
	OrderStateDisputed          OrderState = "DISPUTED"
	OrderStateCancelled         OrderState = "CANCELLED"
	OrderStateExpired           OrderState = "EXPIRED"
)

var validOrderStates = []OrderState{
	OrderStateCreated,
	OrderStateAccepted,
	OrderStateAwaitPay,
	OrderStatePayProofSubmitted,
	OrderStateFulfilling,
	OrderStateCompleted,
	OrderStateDisputed,
	OrderStateCancelled,
	OrderStateExpired,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further mutation is permitted.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateCompleted, OrderStateCancelled, OrderStateExpired:
		return true
	default:
		return false
	}
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
