/*
Package money provides the decimal arithmetic kernel for all monetary
computation in the engine.

PURPOSE:
  Normalizes heterogeneous numeric inputs (strings, floats, integers,
  decimals) to a canonical two-decimal-place representation and provides
  safe add/multiply operations. Every monetary value that crosses a
  component boundary has been through Normalize first.

ROUNDING CONTRACT:
  Exactly 2 fractional digits, ties rounded HALF AWAY FROM ZERO for both
  signs (0.005 -> 0.01, -0.005 -> -0.01). This matches the financial
  "round half up" convention. shopspring/decimal's Round implements half
  away from zero, which is exactly the behavior we want; do NOT swap it
  for a banker's-rounding variant.

  Operations compute at full precision and round the RESULT once, never
  each intermediate. So Add(1234.567, -234.567, 123.456) == 1123.46, not
  the 1123.45/1123.47 you can get from per-operand rounding.

DESIGN PRINCIPLES:
  1. Immutability: Amount values are never mutated; every operation
     returns a new value.
  2. Fail loudly: an unparseable input is an error, never a silent zero.
     Proceeding with an unparsed amount risks silent financial corruption.
  3. Determinism: identical inputs produce identical output regardless of
     representation ("1234.567" and 1234.567 both normalize to 1234.57).

USAGE:
  amt, err := money.Normalize("123.455")   // 123.46
  total, err := money.Add(tuition, fee)    // rounded once
  disc := money.Percent(base, pct)         // round(base * pct / 100)

SEE ALSO:
  - scholarship/: discount computation on top of this kernel
  - billing/: fee and excess-charge computation
*/
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the canonical number of fractional digits for money.
const Places = 2

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidNumericInput is returned when an input cannot be interpreted
// as a number. Use with errors.Is().
var ErrInvalidNumericInput = errors.New("invalid numeric input")

// InvalidInputError carries the offending raw input.
type InvalidInputError struct {
	Raw any
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid numeric input: %v (%T)", e.Raw, e.Raw)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidNumericInput }

// =============================================================================
// AMOUNT - Canonical monetary value (2 fractional digits)
// =============================================================================

// Amount is a fixed-point monetary value, always rounded to 2 fractional
// digits. Construct via Normalize/MustNormalize; the zero value is 0.00.
type Amount struct {
	Value decimal.Decimal
}

// Zero is the 0.00 amount.
func Zero() Amount { return Amount{Value: decimal.Zero} }

// Normalize converts any supported numeric representation to an Amount,
// rounding half away from zero to 2 fractional digits.
//
// Supported inputs: Amount, decimal.Decimal, string, float64, float32,
// int, int32, int64. Anything else (including an unparseable string) is
// an *InvalidInputError.
func Normalize(v any) (Amount, error) {
	d, err := parse(v)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d.Round(Places)}, nil
}

// MustNormalize is Normalize for trusted literals (configs, tests).
// Panics on invalid input.
func MustNormalize(v any) Amount {
	a, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return a
}

// parse converts to full-precision decimal WITHOUT rounding.
// Operations use this so only the final result is rounded.
func parse(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case Amount:
		return x.Value, nil
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero, &InvalidInputError{Raw: v}
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Zero, &InvalidInputError{Raw: v}
	}
}

// =============================================================================
// OPERATIONS - Full precision internally, round the result once
// =============================================================================

// Add sums any number of values and rounds the result once.
func Add(values ...any) (Amount, error) {
	sum := decimal.Zero
	for _, v := range values {
		d, err := parse(v)
		if err != nil {
			return Amount{}, err
		}
		sum = sum.Add(d)
	}
	return Amount{Value: sum.Round(Places)}, nil
}

// Mul multiplies two values and rounds the result once.
func Mul(a, b any) (Amount, error) {
	da, err := parse(a)
	if err != nil {
		return Amount{}, err
	}
	db, err := parse(b)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: da.Mul(db).Round(Places)}, nil
}

// Percent returns round(base * pct / 100). Both operands are already
// Amounts so this cannot fail.
func Percent(base, pct Amount) Amount {
	return Amount{Value: base.Value.Mul(pct.Value).Div(decimal.NewFromInt(100)).Round(Places)}
}

// =============================================================================
// AMOUNT METHODS
// =============================================================================

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value).Round(Places)} }
func (a Amount) Sub(b Amount) Amount { return Amount{Value: a.Value.Sub(b.Value).Round(Places)} }
func (a Amount) Neg() Amount         { return Amount{Value: a.Value.Neg()} }

func (a Amount) IsZero() bool            { return a.Value.IsZero() }
func (a Amount) IsNegative() bool        { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool        { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool     { return a.Value.Equal(b.Value) }
func (a Amount) LessThan(b Amount) bool  { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// String renders with exactly 2 fractional digits, e.g. "100.00".
func (a Amount) String() string { return a.Value.StringFixed(Places) }

// Float64 is for DTO/display use only, never for arithmetic.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// MarshalJSON renders the canonical fixed-point string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "123.45" and 123.45.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	n, err := Normalize(s)
	if err != nil {
		return err
	}
	*a = n
	return nil
}
