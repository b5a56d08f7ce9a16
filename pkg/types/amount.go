package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/unimaker/paygate/pkg/errors"
)

// Amount is a fixed-point money value with two decimal places. It is
// serialized as a decimal string on both the wire and in the database so
// that no float conversion ever happens.
type Amount struct {
	d decimal.Decimal
}

// ParseAmount parses a decimal string into an Amount. Values with more
// than two decimal places are rejected rather than silently rounded.
func ParseAmount(raw string) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, errors.New(errors.CodeValidation, fmt.Sprintf("invalid amount %q", raw))
	}
	if d.Exponent() < -2 {
		return Amount{}, errors.New(errors.CodeValidation, "amount precision exceeds two decimal places")
	}
	return Amount{d: d.Round(2)}, nil
}

// AmountFromDecimal rounds an arbitrary decimal to two places and wraps
// it as an Amount. decimal.Round ties away from zero, which is the
// rounding mode used everywhere money is handled here.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.Round(2)}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// Equal compares two amounts by numeric value.
func (a Amount) Equal(other Amount) bool {
	return a.d.Equal(other.d)
}

// GreaterThan reports whether a > other.
func (a Amount) GreaterThan(other Amount) bool {
	return a.d.GreaterThan(other.d)
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON string, never a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts only a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New(errors.CodeValidation, "amount must be a decimal string")
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as a decimal string.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads the amount back from a string or numeric column.
func (a *Amount) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "scan amount")
		}
		*a = Amount{d: d.Round(2)}
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "scan amount")
		}
		*a = Amount{d: d.Round(2)}
		return nil
	case float64:
		*a = AmountFromDecimal(decimal.NewFromFloat(v))
		return nil
	default:
		return errors.New(errors.CodeInternal, fmt.Sprintf("unsupported amount column type %T", value))
	}
}
