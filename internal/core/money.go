// Package core provides money parsing and handling utilities.
//
// This file contains the decimal-backed Money type used for every amount in
// the ledger, plus parsing from user input.
package core

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is a non-currency-aware decimal amount rounded to two places.
type Money struct {
	Amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{Amount: decimal.Zero}

// NewMoney builds Money from a whole number of units.
func NewMoney(units int64) Money {
	return Money{Amount: decimal.NewFromInt(units)}
}

// MoneyFromCents builds Money from minor units.
func MoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

// MoneyFromDecimal rounds d half-up to two places.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Amount: d.Round(2)}
}

// ParseMoney converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional thousands separator when a dot is also present (1,234.50).
// Negative values and malformed input fail with ErrInvalidAmount; zero is
// accepted because budgets and goal balances may legitimately be zero.
//
// Examples:
//
//	ParseMoney("12.34")    -> 12.34
//	ParseMoney("12,34")    -> 12.34
//	ParseMoney("1,234.50") -> 1234.50
//	ParseMoney("12.345")   -> 12.35 (rounds up)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money literal %q", s))
	}
	return m
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount)} }
func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount)} }
func (m Money) Abs() Money        { return Money{Amount: m.Amount.Abs()} }

// Cmp compares m and o and returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.Amount.Cmp(o.Amount) }

func (m Money) Equal(o Money) bool       { return m.Amount.Equal(o.Amount) }
func (m Money) GreaterThan(o Money) bool { return m.Amount.GreaterThan(o.Amount) }

// Float64 returns the value for display purposes only.
func (m Money) Float64() float64 {
	return m.Amount.InexactFloat64()
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// MarshalJSON renders Money as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Amount.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// Value stores Money as its canonical decimal string.
func (m Money) Value() (driver.Value, error) {
	return m.Amount.StringFixed(2), nil
}

// Scan reads Money from a numeric, text or blob column.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = MoneyFromDecimal(d)
	return nil
}
