package market

import (
	"errors"
	"fmt"
	"strings"
)

// Side is the direction of a closed position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

var ErrBadSide = errors.New("unknown side")

// ParseSide accepts the English names, the buy/sell aliases and the
// single-glyph Chinese labels (多 long, 空 short) used by exchange
// screenshots and older ledger rows.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "l", "buy", "多", "平多":
		return Long, nil
	case "short", "s", "sell", "空", "平空":
		return Short, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadSide, s)
}

func (s Side) Valid() bool {
	return s == Long || s == Short
}

// Sign is +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Label is the short glyph shown in chat replies.
func (s Side) Label() string {
	switch s {
	case Long:
		return "多"
	case Short:
		return "空"
	}
	return "?"
}

func (s Side) String() string {
	return string(s)
}

// InferSide picks the side whose price move agrees with the sign of a
// realized result (PnL or return percentage). A positive result with a
// rising price is a long; anything else is a short. ok is false when
// either the move or the result is zero.
func InferSide(entry, exit, result float64) (Side, bool) {
	diff := exit - entry
	if diff == 0 || result == 0 {
		return "", false
	}
	if (result > 0 && diff > 0) || (result < 0 && diff < 0) {
		return Long, true
	}
	return Short, true
}
