// Package cnpj validates Brazilian company tax IDs (CNPJ).
package cnpj

import (
	"errors"
	"strings"
)

// Length is the number of digits in a CNPJ.
const Length = 14

// ErrInvalidBase is returned by CheckDigits for inputs that are not 12 digits.
var ErrInvalidBase = errors.New("cnpj base must have 12 digits")

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Valid reports whether s carries a well formed CNPJ with correct check digits.
// Punctuation is ignored. Sequences of a single repeated digit are rejected.
func Valid(s string) bool {
	d := Digits(s)
	if len(d) != Length || repeated(d) {
		return false
	}
	return d[12] == checkDigit(d[:12], firstWeights) && d[13] == checkDigit(d[:13], secondWeights)
}

// CheckDigits returns base followed by its two check digits.
func CheckDigits(base string) (string, error) {
	d := Digits(base)
	if len(d) != Length-2 || len(d) != len(base) {
		return "", ErrInvalidBase
	}
	d += string(checkDigit(d, firstWeights))
	d += string(checkDigit(d, secondWeights))
	return d, nil
}

// Format renders a 14 digit CNPJ as NN.NNN.NNN/NNNN-NN. Other inputs are returned unchanged.
func Format(s string) string {
	d := Digits(s)
	if len(d) != Length {
		return s
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

func checkDigit(d string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

func repeated(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}
