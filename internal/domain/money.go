package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Monetary scale constants.
const (
	// MicrocentsPerCent is the number of microcents in a cent.
	MicrocentsPerCent int64 = 1_000_000
	// MicrocentsPerDollar is the number of microcents in a dollar.
	MicrocentsPerDollar int64 = 100 * MicrocentsPerCent
)

// fracDigits is the number of decimal digits a dollar amount can carry
// before rounding (1 microcent = 10^-8 dollars).
const fracDigits = 8

// Money is an immutable monetary amount in microcents.
// All arithmetic and comparisons run on the integer representation;
// no floating point ever enters a stored or compared path.
type Money struct {
	microcents int64
}

// MoneyFromMicrocents builds a Money from an exact microcent count.
func MoneyFromMicrocents(mc int64) Money {
	return Money{microcents: mc}
}

// ParseMoney parses a non-negative decimal dollar amount such as
// "5.00", "$5.00", "5" or ".25". Input is rounded half-up to the
// nearest microcent. Malformed or negative input returns ErrInvalidAmount.
func ParseMoney(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "$")
	if raw == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	intPart, fracPart, _ := strings.Cut(raw, ".")
	if !isDigits(intPart) || !isDigits(fracPart) {
		return Money{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	if intPart == "" && fracPart == "" {
		// covers "." and "$."
		return Money{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	var dollars int64
	if intPart != "" {
		var err error
		dollars, err = strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
		}
	}
	if dollars > math.MaxInt64/MicrocentsPerDollar {
		return Money{}, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}

	frac, err := parseFraction(fracPart)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	// The dollar part alone fits, but the fraction can still push the sum
	// past MaxInt64 at the top of the range.
	if frac > math.MaxInt64-dollars*MicrocentsPerDollar {
		return Money{}, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}

	return Money{microcents: dollars*MicrocentsPerDollar + frac}, nil
}

// parseFraction converts the fractional digit string of a dollar amount
// into microcents, rounding half-up past the eighth digit.
func parseFraction(digits string) (int64, error) {
	if digits == "" {
		return 0, nil
	}

	keep := digits
	if len(keep) > fracDigits {
		keep = keep[:fracDigits]
	}

	frac, err := strconv.ParseInt(keep, 10, 64)
	if err != nil {
		return 0, err
	}
	// Scale up short fractions: "5" means 0.5 dollars, not 5 microcents.
	for i := len(keep); i < fracDigits; i++ {
		frac *= 10
	}
	// Round half-up on the first dropped digit.
	if len(digits) > fracDigits && digits[fracDigits] >= '5' {
		frac++
	}
	return frac, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Wrap converts an integer microcent count, a decimal string or an
// existing Money into a Money. Any other type returns ErrInvalidAmount.
func Wrap(v any) (Money, error) {
	switch x := v.(type) {
	case Money:
		return x, nil
	case int64:
		return MoneyFromMicrocents(x), nil
	case int:
		return MoneyFromMicrocents(int64(x)), nil
	case string:
		return ParseMoney(x)
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// Microcents returns the exact integer representation.
func (m Money) Microcents() int64 { return m.microcents }

// Decimal returns the amount in dollars as a float. Display only;
// never used for comparison or storage.
func (m Money) Decimal() float64 {
	return float64(m.microcents) / float64(MicrocentsPerDollar)
}

// Add returns the sum of two amounts.
func (m Money) Add(x Money) Money {
	return Money{microcents: m.microcents + x.microcents}
}

// Sub returns m minus x. The result may be negative.
func (m Money) Sub(x Money) Money {
	return Money{microcents: m.microcents - x.microcents}
}

// Cmp compares two amounts: -1 if m < x, 0 if equal, 1 if m > x.
func (m Money) Cmp(x Money) int {
	switch {
	case m.microcents < x.microcents:
		return -1
	case m.microcents > x.microcents:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.microcents == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.microcents < 0 }

// String formats the amount as dollars, e.g. "$5.00". Sub-cent
// precision is shown only when present.
func (m Money) String() string {
	mc := m.microcents
	sign := ""
	if mc < 0 {
		sign = "-"
		mc = -mc
	}
	dollars := mc / MicrocentsPerDollar
	rem := mc % MicrocentsPerDollar
	if rem%MicrocentsPerCent == 0 {
		return fmt.Sprintf("%s$%d.%02d", sign, dollars, rem/MicrocentsPerCent)
	}
	return strings.TrimRight(fmt.Sprintf("%s$%d.%08d", sign, dollars, rem), "0")
}
