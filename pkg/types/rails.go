package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/unimaker/paygate/pkg/enums"
)

// PaymentRails holds the payout credentials a seller accepts payments
// over. Rails are ORDER_ONLY visible: they leave the registry solely
// through the order-scoped reveal, never through bulk reads.
type PaymentRails struct {
	WechatQr          *string `json:"wechat_qr,omitempty"`
	AlipayQr          *string `json:"alipay_qr,omitempty"`
	WalletAddress     *string `json:"wallet_address,omitempty"`
	CreditCardEnabled bool    `json:"credit_card_enabled,omitempty"`
}

// IsEmpty reports whether no rail is configured at all.
func (r PaymentRails) IsEmpty() bool {
	return r.WechatQr == nil && r.AlipayQr == nil && r.WalletAddress == nil && !r.CreditCardEnabled
}

// Supports reports whether the profile can settle over the given rail.
func (r PaymentRails) Supports(rail enums.PaymentRail) bool {
	switch rail {
	case enums.PaymentRailByopWechat, enums.PaymentRailWechatOfficial:
		return r.WechatQr != nil
	case enums.PaymentRailByopAlipay, enums.PaymentRailAlipayOfficial:
		return r.AlipayQr != nil
	case enums.PaymentRailRwadEscrow:
		return r.WalletAddress != nil
	default:
		return false
	}
}

// Value serializes the rails to JSON.
func (r *PaymentRails) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan decodes JSONB into the rails struct.
func (r *PaymentRails) Scan(value interface{}) error {
	if value == nil {
		*r = PaymentRails{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, r)
}
