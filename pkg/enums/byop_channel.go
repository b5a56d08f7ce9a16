package enums

import "fmt"

// ByopChannel names the out-of-band channel a buyer paid through.
type ByopChannel string

const (
	ByopChannelWechat ByopChannel = "WECHAT"
	ByopChannelAlipay ByopChannel = "ALIPAY"
)

var validByopChannels = []ByopChannel{
	ByopChannelWechat,
	ByopChannelAlipay,
}

// String implements fmt.Stringer.
func (c ByopChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ByopChannel.
func (c ByopChannel) IsValid() bool {
	for _, candidate := range validByopChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseByopChannel converts raw input into a ByopChannel.
func ParseByopChannel(value string) (ByopChannel, error) {
	for _, candidate := range validByopChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid byop channel %q", value)
}
