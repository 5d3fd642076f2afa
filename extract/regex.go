package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradebook/market"
)

var (
	symbolRE  = regexp.MustCompile(`([A-Z]+)USDT`)
	entryRE   = regexp.MustCompile(`(?is)(?:开仓均价|Entry|Avg Price)[^\d]*?(\d+\.?\d*)`)
	exitRE    = regexp.MustCompile(`(?is)(?:平仓均价|Exit)[^\d]*?(\d+\.?\d*)`)
	qtyRE     = regexp.MustCompile(`(?is)(?:数量|Qty)[^\d]*?(\d+\.?\d*)`)
	pnlRE     = regexp.MustCompile(`(?is)(?:平仓盈亏|Realized PnL)[^\d-]*?(-?\d+\.?\d*)`)
	roiRE     = regexp.MustCompile(`(?is)(?:收益率|ROI)[^\d-]*?(-?\d+\.?\d*)%`)
	bareRoiRE = regexp.MustCompile(`(-?\d+\.?\d*)%`)
)

const (
	// A quantity this close to a price is almost certainly the price
	// captured twice.
	qtyCollision = 0.1

	// Entry and exit further apart than this fraction of the larger one
	// point at a misread column.
	maxSpreadRatio = 0.8

	exactCollision = 0.0001
)

// Markers for closing a long or a short. 平室 is a frequent misread of
// 平空 by the Chinese model.
var (
	closeLongMarkers  = []string{"平多"}
	closeShortMarkers = []string{"平空", "平室"}
	longWords         = []string{"Close Long", "Buy"}
	shortWords        = []string{"Close Short", "Sell"}
)

// ParseText runs the keyword-anchored scan over plain recognized text.
// Every field is searched independently; missing ones stay nil.
func ParseText(text string) Candidate {
	text = strings.ReplaceAll(text, ",", "")

	c := Candidate{CloseTime: market.FindCloseTime(text)}

	if m := symbolRE.FindStringSubmatch(text); m != nil {
		c.Symbol = m[1]
	}

	c.Side = sideFromMarkers(text)

	c.Entry = firstNumber(entryRE, text)
	c.Exit = firstNumber(exitRE, text)
	c.Qty = quantity(text, c.Entry, c.Exit)
	c.PnL = firstNumber(pnlRE, text)
	c.ROI = firstNumber(roiRE, text)
	if c.ROI == nil {
		c.ROI = firstNumber(bareRoiRE, text)
	}

	if !c.Side.Valid() && positive(c.Entry) && positive(c.Exit) {
		result := c.PnL
		if result == nil {
			result = c.ROI
		}
		if result != nil {
			if side, ok := market.InferSide(*c.Entry, *c.Exit, *result); ok {
				c.Side = side
			}
		}
	}
	return c
}

// Suspicions lists the reasons a regex candidate should not be trusted
// as is, even when every field was matched.
func Suspicions(c Candidate) []string {
	var out []string
	if !c.Side.Valid() {
		out = append(out, "side missing")
	}
	if positive(c.Entry) && positive(c.Exit) {
		ratio := math.Abs(*c.Entry-*c.Exit) / math.Max(*c.Entry, *c.Exit)
		if ratio > maxSpreadRatio {
			out = append(out, fmt.Sprintf("entry %g and exit %g too far apart", *c.Entry, *c.Exit))
		}
	}
	if positive(c.Qty) && (collides(*c.Qty, c.Entry, exactCollision) || collides(*c.Qty, c.Exit, exactCollision)) {
		out = append(out, fmt.Sprintf("quantity %g equals a price", *c.Qty))
	}
	fields := []struct {
		name string
		v    *float64
	}{{"entry", c.Entry}, {"exit", c.Exit}, {"quantity", c.Qty}}
	for _, f := range fields {
		if !positive(f.v) {
			out = append(out, f.name+" missing")
		}
	}
	return out
}

// RegexPass is the plain-text pass. It always returns what it found so
// the heuristic pass can use it as hints; the error says whether the
// candidate can be trusted.
func RegexPass(in Input, _ Candidate) (Candidate, error) {
	c := ParseText(in.Text)
	if c.Symbol == "" {
		return c, ErrNoSymbol
	}
	if reasons := Suspicions(c); len(reasons) > 0 {
		return c, fmt.Errorf("%w: %s", ErrSuspicious, strings.Join(reasons, ", "))
	}
	return c, nil
}

func sideFromMarkers(text string) market.Side {
	switch {
	case containsAny(text, closeLongMarkers):
		return market.Long
	case containsAny(text, closeShortMarkers):
		return market.Short
	case containsAny(text, longWords):
		return market.Long
	case containsAny(text, shortWords):
		return market.Short
	}
	return ""
}

// quantity takes the first labelled number, skipping matches that are
// really the entry or exit price read under the quantity label.
func quantity(text string, entry, exit *float64) *float64 {
	for _, m := range qtyRE.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if collides(v, entry, qtyCollision) || collides(v, exit, qtyCollision) {
			continue
		}
		return ptr(v)
	}
	return nil
}

func collides(v float64, price *float64, eps float64) bool {
	return positive(price) && market.Near(v, *price, eps)
}

func firstNumber(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return ptr(v)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
