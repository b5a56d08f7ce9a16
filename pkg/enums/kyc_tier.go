package enums

import "fmt"

// KycTier is the ordered trust level attached to buyer and seller identities
// at evaluation time. Tiers are supplied by the caller, never stored here.
type KycTier string

const (
	KycTierL0 KycTier = "L0"
	KycTierL1 KycTier = "L1"
	KycTierL2 KycTier = "L2"
)

var validKycTiers = []KycTier{
	KycTierL0,
	KycTierL1,
	KycTierL2,
}

// String implements fmt.Stringer.
func (k KycTier) String() string {
	return string(k)
}

// IsValid reports whether the value is a known KycTier.
func (k KycTier) IsValid() bool {
	for _, candidate := range validKycTiers {
		if candidate == k {
			return true
		}
	}
	return false
}

// Level returns the ordinal position used for tier comparisons. Unknown
// values map to -1 so they never satisfy a requirement.
func (k KycTier) Level() int {
	switch k {
	case KycTierL0:
		return 0
	case KycTierL1:
		return 1
	case KycTierL2:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether the tier meets or exceeds the required tier.
func (k KycTier) AtLeast(required KycTier) bool {
	return k.Level() >= required.Level()
}

// ParseKycTier converts raw input into a KycTier.
func ParseKycTier(value string) (KycTier, error) {
	for _, candidate := range validKycTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kyc tier %q", value)
}
