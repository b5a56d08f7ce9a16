package enums

import "fmt"

// TradeScene identifies the commerce context a unified order was created for.
// It determines risk thresholds and the default rail preference and is
// immutable per order.
type TradeScene string

const (
	TradeSceneContentPaywall TradeScene = "CONTENT_PAYWALL"
	TradeSceneEcomProduct    TradeScene = "ECOM_PRODUCT"
	TradeSceneC2CFiat        TradeScene = "C2C_FIAT"
	TradeSceneAppItem        TradeScene = "APP_ITEM"
	TradeSceneAdItem         TradeScene = "AD_ITEM"
)

var validTradeScenes = []TradeScene{
	TradeSceneContentPaywall,
	TradeSceneEcomProduct,
	TradeSceneC2CFiat,
	TradeSceneAppItem,
	TradeSceneAdItem,
}

// String implements fmt.Stringer.
func (s TradeScene) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TradeScene.
func (s TradeScene) IsValid() bool {
	for _, candidate := range validTradeScenes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTradeScene converts raw input into a TradeScene.
func ParseTradeScene(value string) (TradeScene, error) {
	for _, candidate := range validTradeScenes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade scene %q", value)
}
