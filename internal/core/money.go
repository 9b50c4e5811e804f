// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Text input is parsed with shopspring/decimal
// so that arbitrary decimal strings are accepted and rounded exactly, without
// passing through float64.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var (
	ErrInvalidAmount     = errors.New("not a number")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
)

// maxCents bounds parsed amounts well inside int64 so sums cannot overflow.
const maxCents = int64(1) << 53

// ParseAmount converts a decimal string to cents with half-up rounding.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signed
// values are allowed; callers that need a positive amount validate afterwards.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235 (half-up)
//	ParseAmount("-5")     -> -500
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseDecimalToCents parses a strictly positive amount.
func ParseDecimalToCents(s string) (int64, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return m.Cents, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals and a dot separator ("12.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
