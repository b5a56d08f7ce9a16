package enums

import "fmt"

// PaymentRail is a specific payment channel an order prefers for settlement.
type PaymentRail string

const (
	PaymentRailByopWechat     PaymentRail = "BYOP_WECHAT"
	PaymentRailByopAlipay     PaymentRail = "BYOP_ALIPAY"
	PaymentRailWechatOfficial PaymentRail = "WECHAT_OFFICIAL"
	PaymentRailAlipayOfficial PaymentRail = "ALIPAY_OFFICIAL"
	PaymentRailRwadEscrow     PaymentRail = "RWAD_ESCROW"
)

var validPaymentRails = []PaymentRail{
	PaymentRailByopWechat,
	PaymentRailByopAlipay,
	PaymentRailWechatOfficial,
	PaymentRailAlipayOfficial,
	PaymentRailRwadEscrow,
}

// String implements fmt.Stringer.
func (r PaymentRail) String() string {
	return string(r)
}

// IsValid reports whether the value is a known PaymentRail.
func (r PaymentRail) IsValid() bool {
	for _, candidate := range validPaymentRails {
		if candidate == r {
			return true
		}
	}
	return false
}

// ByopChannel maps BYOP rails to the out-of-band channel a proof should
// reference. Non-BYOP rails return an empty channel.
func (r PaymentRail) ByopChannel() (ByopChannel, bool) {
	switch r {
	case PaymentRailByopWechat:
		return ByopChannelWechat, true
	case PaymentRailByopAlipay:
		return ByopChannelAlipay, true
	default:
		return "", false
	}
}

// ParsePaymentRail converts raw input into a PaymentRail.
func ParsePaymentRail(value string) (PaymentRail, error) {
	for _, candidate := range validPaymentRails {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment rail %q", value)
}
