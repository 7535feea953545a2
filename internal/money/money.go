// Package money holds wallet and price amounts as integer cents.
//
// Amounts are stored as INTEGER cents so conditional balance updates compare
// exactly on every driver; decimal is used at the edges (parsing, JSON,
// percentages).
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("invalid amount")

// Amount is a quantity of cents.
type Amount int64

var hundred = decimal.NewFromInt(100)

// Max is the largest amount Parse accepts and the ceiling for any balance.
const Max Amount = 1_000_000_000_000 * 100

var maxDecimal = decimal.NewFromInt(int64(Max / 100))

// FromDecimal rounds d half-up to cents.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Mul(hundred).Round(0).IntPart())
}

// Parse reads a decimal string such as "105", "105.5" or "105.50".
// More than two fractional digits is rejected rather than rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalid
	}
	if !d.Equal(d.Round(2)) || d.Abs().GreaterThan(maxDecimal) {
		return 0, ErrInvalid
	}
	return FromDecimal(d), nil
}

// Must is Parse for constants and tests.
func Must(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return decimal.New(int64(a), -2) }

func (a Amount) String() string { return a.Decimal().StringFixed(2) }

// Percent returns pct percent of a, rounded half-up to cents.
func (a Amount) Percent(pct int64) Amount {
	return FromDecimal(a.Decimal().Mul(decimal.NewFromInt(pct)).Div(hundred))
}

func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return ErrInvalid
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
