// Package extract recovers closed-position fields from recognized
// screenshot text. Three passes run in priority order: a layout pass over
// word bounding boxes, a keyword regex pass over plain text, and a
// heuristic pass that reconstructs prices and quantity from every number
// on the page when the first two cannot be trusted.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebook/market"
)

// PassName identifies which strategy produced a candidate.
type PassName string

const (
	PassLayout    PassName = "layout"
	PassRegex     PassName = "regex"
	PassHeuristic PassName = "heuristic"
)

var (
	ErrUnusable      = errors.New("recognized text unusable")
	ErrNoLayout      = errors.New("no word layout")
	ErrNoSymbol      = errors.New("no symbol")
	ErrIncomplete    = errors.New("incomplete fields")
	ErrSuspicious    = errors.New("suspicious fields")
	ErrTooFewNumbers = errors.New("too few numbers")
	ErrZeroSpread    = errors.New("entry and exit candidates are equal")
	ErrNoQuantity    = errors.New("no consistent quantity")
	ErrNoSide        = errors.New("side could not be inferred")
)

// Word is one recognized token with its bounding box in pixels and its
// block/paragraph/line grouping.
type Word struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
	Block  int
	Par    int
	Line   int
}

// Page is everything the recognizer produced for one screenshot. AltText
// is an optional second recognition of the same image, e.g. with a
// narrower language set, tried when the primary text is unusable.
type Page struct {
	Text    string
	AltText string
	Words   []Word
}

// Input is what a single pass sees.
type Input struct {
	Text  string
	Words []Word
}

// Candidate holds the fields a pass could recover. Nil pointers and the
// empty side mean "not found".
type Candidate struct {
	Symbol    string
	Side      market.Side
	Entry     *float64
	Exit      *float64
	Qty       *float64
	PnL       *float64
	ROI       *float64
	CloseTime string

	// SideDefaulted is set when the side was guessed as Long because no
	// inference succeeded.
	SideDefaulted bool
}

// Complete reports whether every field a trade needs is present and
// positive. The close time is optional.
func (c Candidate) Complete() bool {
	return c.Symbol != "" && c.Side.Valid() &&
		positive(c.Entry) && positive(c.Exit) && positive(c.Qty)
}

func (c Candidate) String() string {
	return fmt.Sprintf("symbol=%q side=%q entry=%s exit=%s qty=%s pnl=%s roi=%s time=%q",
		c.Symbol, c.Side, fmtOpt(c.Entry), fmtOpt(c.Exit), fmtOpt(c.Qty),
		fmtOpt(c.PnL), fmtOpt(c.ROI), c.CloseTime)
}

// Attempt records why one pass did not produce the result.
type Attempt struct {
	Pass PassName
	Err  error
}

// FailureError is returned when every pass is exhausted. Preview holds
// the start of the recognized text for diagnosis.
type FailureError struct {
	Preview  string
	Attempts []Attempt
}

func (e *FailureError) Error() string {
	var reasons []string
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Pass, a.Err))
	}
	return fmt.Sprintf("%v (%s)", ErrUnusable, strings.Join(reasons, "; "))
}

func (e *FailureError) Unwrap() error {
	return ErrUnusable
}

const previewRunes = 100

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "..."
}

func ptr(v float64) *float64 {
	return &v
}

func positive(p *float64) bool {
	return p != nil && *p > 0
}

func fmtOpt(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *p)
}
