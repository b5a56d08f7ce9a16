package enums

import "fmt"

// ProofVerificationMethod records how a verdict was produced.
type ProofVerificationMethod string

const (
	ProofVerificationMethodAutoOcrRules ProofVerificationMethod = "AUTO_OCR_RULES"
	ProofVerificationMethodManual       ProofVerificationMethod = "MANUAL"
)

var validProofVerificationMethods = []ProofVerificationMethod{
	ProofVerificationMethodAutoOcrRules,
	ProofVerificationMethodManual,
}

// String implements fmt.Stringer.
func (m ProofVerificationMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ProofVerificationMethod.
func (m ProofVerificationMethod) IsValid() bool {
	for _, candidate := range validProofVerificationMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseProofVerificationMethod converts raw input into a ProofVerificationMethod.
func ParseProofVerificationMethod(value string) (ProofVerificationMethod, error) {
	for _, candidate := range validProofVerificationMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proof verification method %q", value)
}
