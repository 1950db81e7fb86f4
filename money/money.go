/*
Package money provides exact decimal arithmetic for monetary amounts.

PURPOSE:
  All contract values, installment amounts, and running balances flow through
  this package. Amounts are fixed-point decimals at cent granularity, backed
  by decimal.Decimal, so balance math is immune to binary floating-point
  rounding.

KEY CONCEPTS:
  - Amount: A non-negative monetary quantity at 2 decimal places
  - Subtract: Validated exact subtraction
  - Split: Even division with front-loaded remainder distribution

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal; float64 never touches an amount
  2. Granularity: Every operation lands on a whole number of cents
  3. Purity: No I/O, no clock, no state

SPLIT RULE:
  Split divides a total into n parts at cent granularity. Every part is
  floor(total/n) cents; the first (total mod n) parts carry one extra cent.
  The parts always sum back to the total exactly. Front-loading the remainder
  is the documented, reproducible tie-break: 100.00 / 3 = [33.34, 33.33, 33.33].

USAGE:
  total := money.MustParse("100.00")
  parts, err := money.Split(total, 3)

SEE ALSO:
  - billing/schedule.go: Uses Split to build installment plans
  - billing/balance.go: Uses Amount arithmetic for balance reconciliation
*/
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every Amount is kept at.
const Scale = 2

// ErrInvalidAmount is returned when an operand is negative, malformed, or
// otherwise outside the monetary domain.
var ErrInvalidAmount = errors.New("invalid amount")

// =============================================================================
// AMOUNT - Fixed-point monetary value
// =============================================================================

// Amount is a monetary value at cent granularity. The zero value is 0.00.
type Amount struct {
	value decimal.Decimal
}

// Zero is the 0.00 amount.
var Zero = Amount{}

// Parse converts a decimal string ("150.00", "33.34") into an Amount.
// Values with more than two decimal places are rejected, not rounded.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -Scale {
		return Amount{}, fmt.Errorf("%w: %q has sub-cent precision", ErrInvalidAmount, s)
	}
	return Amount{value: d}, nil
}

// MustParse is Parse for literals in tests and fixtures. Panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from an integer number of cents.
func FromCents(cents int64) Amount {
	return Amount{value: decimal.New(cents, -Scale)}
}

// Cents returns the amount as a whole number of cents.
func (a Amount) Cents() int64 {
	return a.value.Shift(Scale).IntPart()
}

func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount { return Amount{value: a.value.Sub(b.value)} }

func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

func (a Amount) Equal(b Amount) bool       { return a.value.Equal(b.value) }
func (a Amount) GreaterThan(b Amount) bool { return a.value.GreaterThan(b.value) }
func (a Amount) LessThan(b Amount) bool    { return a.value.LessThan(b.value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string { return a.value.StringFixed(Scale) }

// Decimal exposes the underlying decimal for storage layers.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// =============================================================================
// OPERATIONS
// =============================================================================

// Subtract computes a - b. Both operands must be non-negative; the result may
// be negative (callers that require b <= a validate on their side).
func Subtract(a, b Amount) (Amount, error) {
	if a.IsNegative() || b.IsNegative() {
		return Amount{}, fmt.Errorf("%w: operands must be non-negative", ErrInvalidAmount)
	}
	return a.Sub(b), nil
}

// Split divides total into n parts at cent granularity.
//
// Every part is floor(total/n) cents; the first (total mod n) parts receive
// one extra cent, so the parts sum back to total exactly. The remainder is
// always assigned to the earliest parts.
func Split(total Amount, n int) ([]Amount, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot split into %d parts", ErrInvalidAmount, n)
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: cannot split negative total", ErrInvalidAmount)
	}

	cents := total.Cents()
	base := cents / int64(n)
	remainder := cents % int64(n)

	parts := make([]Amount, n)
	for i := range parts {
		c := base
		if int64(i) < remainder {
			c++
		}
		parts[i] = FromCents(c)
	}
	return parts, nil
}
