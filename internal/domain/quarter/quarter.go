// Package quarter parses the quarter column of ANS expense extracts.
package quarter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFormat is returned when the value matches no accepted shape.
	ErrInvalidFormat = errors.New("invalid quarter format")
	// ErrOutOfRange is returned when the parsed quarter is outside 1..4.
	ErrOutOfRange = errors.New("quarter out of range")
)

var (
	labelled = regexp.MustCompile(`^(\d{1,2})T(\d{4})$`)
	digits   = regexp.MustCompile(`^\d+$`)
)

// Normalize maps "1".."4", "01".."04" and "<q>T<yyyy>" to a quarter in 1..4.
// It never logs; callers decide what to do with rejected values.
func Normalize(s string) (int, error) {
	s = strings.TrimSpace(s)

	var num string
	switch {
	case labelled.MatchString(s):
		num = labelled.FindStringSubmatch(s)[1]
	case digits.MatchString(s):
		num = s
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	// Only digits reach here, so a failed conversion is a value too large for int.
	q, err := strconv.Atoi(num)
	if err != nil || q < 1 || q > 4 {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return q, nil
}

// Year parses a four digit year.
func Year(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 || !digits.MatchString(s) {
		return 0, fmt.Errorf("%w: year %q", ErrInvalidFormat, s)
	}
	return strconv.Atoi(s)
}
