package aggregate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// ErrInvalidAmount is returned for expense values that are not numbers or do not fit in cents.
var ErrInvalidAmount = errors.New("invalid amount")

// maxCentDigits is the number of digits of math.MaxInt64.
const maxCentDigits = 19

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(-math.MaxInt64)
)

// ParseAmount parses an expense value into cents.
// Accepted shapes: 1234.56, 1234,56, 1.234,56, 1,234.56 and exponent notation.
// Fractions beyond two digits are rounded half away from zero.
func ParseAmount(s string) (model.Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	n, err := normalizeSeparators(s)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	cents := d.Shift(2)
	// Magnitude is below 10^mag; checked before rounding so huge exponents never expand.
	mag := cents.NumDigits() + int(cents.Exponent())
	switch {
	case mag > maxCentDigits:
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	case mag < 0:
		return 0, nil
	}
	cents = cents.Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return model.Cents(cents.IntPart()), nil
}

// addCents returns a+b, or false when the sum leaves the int64 range.
func addCents(a, b model.Cents) (model.Cents, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return a, false
	}
	return s, true
}

func normalizeSeparators(s string) (string, error) {
	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), nil
		}
		return strings.ReplaceAll(s, ",", ""), nil
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		return strings.Replace(s, ",", ".", 1), nil
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", ""), nil
	}
	return s, nil
}
