package csvio

import (
	"strconv"
	"strings"
)

// FormatBool renders booleans the way downstream loaders expect.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool accepts true, 1 and yes in any case. Everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatRatio renders a ratio with four decimals.
func FormatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
