// Package core holds the domain types shared by the parsing,
// classification and ledger components, plus money handling utilities.
//
// Amounts are stored as integer cents to keep ledger arithmetic exact;
// they render as two-decimal values at the JSON and template boundary.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in cents.
type Money struct {
	Cents int64
}

// ParseAmount converts a monetary token from a receipt into cents.
//
// Currency symbols are stripped and a decimal comma is normalized to a
// dot. The third decimal digit, if present, rounds half-up. Zero is a
// valid amount; receipts occasionally carry free items.
//
//	ParseAmount("$5.48") -> 548
//	ParseAmount("6,97")  -> 697
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"$", "€", "£"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m minus other. The result may be negative, which the
// summary surfaces as an overspent budget.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Float returns the amount as a float64 for display purposes only.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals.
func (m Money) String() string {
	neg := ""
	c := m.Cents
	if c < 0 {
		neg = "-"
		c = -c
	}
	return neg + strconv.FormatInt(c/100, 10) + "." + pad2(c%100)
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

// MarshalJSON renders the amount as a plain two-decimal number so the
// persisted store keeps the schema described by the wire contract.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	if neg {
		parsed.Cents = -parsed.Cents
	}
	*m = parsed
	return nil
}
