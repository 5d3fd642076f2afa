package extract

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/rustyeddy/tradebook/market"
)

// LayoutOptions tunes how values are matched to labels by position.
type LayoutOptions struct {
	// MaxDistance is how far below a label (in pixels) a value may sit.
	MaxDistance float64
	// Margin is the horizontal tolerance between label and value
	// centers, as a fraction of the wider of the two boxes.
	Margin float64
}

var DefaultLayout = LayoutOptions{MaxDistance: 200, Margin: 0.8}

var (
	qtyLabels   = []string{"数量", "Qty"}
	entryLabels = []string{"开仓均价", "Entry", "AvgPrice"}
	exitLabels  = []string{"平仓均价", "Exit", "Price"}
)

// Pass adapts the options to the orchestrator's pass signature.
func (o LayoutOptions) Pass() PassFunc {
	return func(in Input, _ Candidate) (Candidate, error) {
		return ParseLayout(in.Words, o)
	}
}

type line struct {
	words []Word
	text  string
}

// ParseLayout reads the screenshot as a grid: each value is the number
// sitting directly under its label in the same column. This keeps label
// and value rows that share a line apart, which plain regex cannot do.
func ParseLayout(words []Word, o LayoutOptions) (Candidate, error) {
	if o.MaxDistance <= 0 {
		o.MaxDistance = DefaultLayout.MaxDistance
	}
	if o.Margin <= 0 {
		o.Margin = DefaultLayout.Margin
	}

	var kept []Word
	for _, w := range words {
		if strings.TrimSpace(w.Text) != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return Candidate{}, ErrNoLayout
	}

	lines := groupLines(kept)
	var c Candidate

	var texts []string
	for _, w := range kept {
		texts = append(texts, w.Text)
		if c.Symbol == "" && strings.Contains(w.Text, market.QuoteAsset) && len(w.Text) > len(market.QuoteAsset) {
			c.Symbol = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(w.Text, market.QuoteAsset, "")))
		}
		if strings.Contains(w.Text, "%") {
			if v, err := market.ParseFloat(strings.NewReplacer("%", "", "+", "").Replace(w.Text)); err == nil {
				c.ROI = ptr(v)
			}
		}
	}

	full := strings.Join(texts, "")
	compact := strings.ReplaceAll(full, " ", "")
	switch {
	case containsAny(full, closeLongMarkers) || strings.Contains(compact, "CloseLong"):
		c.Side = market.Long
	case containsAny(full, closeShortMarkers) || strings.Contains(compact, "CloseShort"):
		c.Side = market.Short
	}

	c.Qty = o.valueUnder(lines, kept, qtyLabels)
	c.Entry = o.valueUnder(lines, kept, entryLabels)
	c.Exit = o.valueUnder(lines, kept, exitLabels)
	c.CloseTime = market.FindCloseTime(strings.Join(texts, " "))

	hasROI := c.ROI != nil && *c.ROI != 0
	if !c.Side.Valid() && hasROI && positive(c.Entry) && positive(c.Exit) {
		if side, ok := market.InferSide(*c.Entry, *c.Exit, *c.ROI); ok {
			c.Side = side
		}
	}

	var missing []string
	if c.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if !c.Side.Valid() && !hasROI {
		missing = append(missing, "side")
	}
	if !positive(c.Qty) {
		missing = append(missing, "quantity")
	}
	if !positive(c.Entry) {
		missing = append(missing, "entry")
	}
	if !positive(c.Exit) {
		missing = append(missing, "exit")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	if !c.Side.Valid() {
		c.Side = market.Long
		c.SideDefaulted = true
	}
	return c, nil
}

type lineKey struct{ block, par, line int }

func groupLines(words []Word) []line {
	index := map[lineKey]int{}
	var out []line
	for _, w := range words {
		k := lineKey{w.Block, w.Par, w.Line}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, line{})
		}
		out[i].words = append(out[i].words, w)
		out[i].text += w.Text
	}
	return out
}

func (o LayoutOptions) valueUnder(lines []line, words []Word, labels []string) *float64 {
	label, ok := findLabel(lines, labels)
	if !ok {
		return nil
	}
	return o.numberBelow(label, words)
}

// findLabel returns the box of the first label found, scanning lines in
// reading order. A label may be split over consecutive words ("数" "量"),
// in which case the union of their boxes is used.
func findLabel(lines []line, labels []string) (image.Rectangle, bool) {
	for _, ln := range lines {
		for _, kw := range labels {
			if !strings.Contains(ln.text, kw) {
				continue
			}
			for i, w := range ln.words {
				if strings.Contains(w.Text, kw) {
					return rect(w), true
				}
				acc := w.Text
				r := rect(w)
				for j := i + 1; j < len(ln.words) && strings.HasPrefix(kw, acc) && acc != kw; j++ {
					acc += ln.words[j].Text
					r = r.Union(rect(ln.words[j]))
				}
				if acc == kw {
					return r, true
				}
			}
		}
	}
	return image.Rectangle{}, false
}

// numberBelow picks the vertically nearest numeric word under the label
// whose center lies in the label's column.
func (o LayoutOptions) numberBelow(label image.Rectangle, words []Word) *float64 {
	labelCenter := float64(label.Min.X+label.Max.X) / 2
	bottom := float64(label.Max.Y)

	var best *float64
	bestTop := math.Inf(1)
	for _, w := range words {
		v, err := market.ParseFloat(strings.ReplaceAll(w.Text, "%", ""))
		if err != nil {
			continue
		}
		center := float64(w.Left) + float64(w.Width)/2
		margin := math.Max(float64(label.Dx()), float64(w.Width)) * o.Margin
		if math.Abs(center-labelCenter) > margin {
			continue
		}
		top := float64(w.Top)
		if top > bottom && top < bottom+o.MaxDistance && top < bestTop {
			best = ptr(v)
			bestTop = top
		}
	}
	return best
}

func rect(w Word) image.Rectangle {
	return image.Rect(w.Left, w.Top, w.Left+w.Width, w.Top+w.Height)
}
