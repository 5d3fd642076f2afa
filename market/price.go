package market

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrBadNumber = errors.New("malformed number")

// ParseFloat parses a decimal written with optional thousands separators
// ("3,090.40"). NaN and infinities are rejected.
func ParseFloat(s string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadNumber)
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return v, nil
}

// ParsePositive is ParseFloat restricted to values > 0.
func ParsePositive(s string) (float64, error) {
	v, err := ParseFloat(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrBadNumber, s)
	}
	return v, nil
}

// Near reports whether a and b differ by strictly less than eps.
func Near(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}
