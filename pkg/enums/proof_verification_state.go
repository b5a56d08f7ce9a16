package enums

import "fmt"

// ProofVerificationState tracks the verdict lifecycle of a submitted proof.
type ProofVerificationState string

const (
	ProofVerificationStatePending        ProofVerificationState = "PENDING"
	ProofVerificationStatePassed         ProofVerificationState = "PASSED"
	ProofVerificationStateReviewRequired ProofVerificationState = "REVIEW_REQUIRED"
	ProofVerificationStateRejected       ProofVerificationState = "REJECTED"
)

var validProofVerificationStates = []ProofVerificationState{
	ProofVerificationStatePending,
	ProofVerificationStatePassed,
	ProofVerificationStateReviewRequired,
	ProofVerificationStateRejected,
}

// String implements fmt.Stringer.
func (s ProofVerificationState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProofVerificationState.
func (s ProofVerificationState) IsValid() bool {
	for _, candidate := range validProofVerificationStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsVerdict reports whether the state is a decided verdict rather than an
// intermediate one.
func (s ProofVerificationState) IsVerdict() bool {
	switch s {
	case ProofVerificationStatePassed, ProofVerificationStateReviewRequired, ProofVerificationStateRejected:
		return true
	default:
		return false
	}
}

// ParseProofVerificationState converts raw input into a ProofVerificationState.
func ParseProofVerificationState(value string) (ProofVerificationState, error) {
	for _, candidate := range validProofVerificationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proof verification state %q", value)
}
