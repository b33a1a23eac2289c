// Package core provides the pure domain model of the budgeting ledger.
//
// This file contains money parsing and validation. Amounts are
// decimal.Decimal values carrying at most two decimal digits; the boundary
// rejects anything finer instead of silently rounding.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount string into a money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The
// result must be non-negative and carry at most two decimal digits; anything
// else fails with ErrInvalid wrapped with detail.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("12.345") -> error (too precise)
//	ParseAmount("-5")     -> error (negative)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalid)
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalid, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks the money invariants for an allocation or flow
// amount: non-negative, at most two decimal digits.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalid, d)
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("%w: amount %s has more than 2 decimal digits", ErrInvalid, d)
	}
	return nil
}

// FormatAmount renders a money value with exactly two decimal digits, the
// form amounts are displayed and stored in.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
