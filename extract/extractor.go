package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/metrics"
)

// PassFunc is one extraction strategy. hint is the candidate returned by
// the previous pass, complete or not.
type PassFunc func(in Input, hint Candidate) (Candidate, error)

type Pass struct {
	Name PassName
	Run  PassFunc
	// NeedsLayout passes are skipped for inputs without word boxes.
	NeedsLayout bool
}

// DefaultPasses returns layout, regex and heuristic in priority order.
func DefaultPasses(layout LayoutOptions) []Pass {
	return []Pass{
		{Name: PassLayout, Run: layout.Pass(), NeedsLayout: true},
		{Name: PassRegex, Run: RegexPass},
		{Name: PassHeuristic, Run: HeuristicPass},
	}
}

// Result is a resolved trade as read from a screenshot.
type Result struct {
	Symbol string
	Side   market.Side
	Entry  float64
	Exit   float64
	Qty    float64

	// CloseTime is zero when no timestamp was printed.
	CloseTime time.Time

	Pass PassName
	// SideDefaulted marks a Long that was assumed, not read or inferred.
	SideDefaulted bool
	// Suspicious marks a regex result kept only because no later pass
	// could improve on it.
	Suspicious bool
}

// Confident reports whether the result needed no last-resort guess.
func (r Result) Confident() bool {
	return !r.SideDefaulted && !r.Suspicious
}

type Extractor struct {
	passes []Pass
	loc    *time.Location
}

type Option func(*Extractor)

func WithPasses(passes ...Pass) Option {
	return func(e *Extractor) { e.passes = passes }
}

// WithLocation sets the zone printed timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) { e.loc = loc }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		passes: DefaultPasses(DefaultLayout),
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the passes in order over the primary text and, if that
// is exhausted, over the alternate text. The first pass to return a
// trusted candidate wins. A complete but suspicious regex candidate is
// returned, flagged, only when every later pass failed too.
func (e *Extractor) Extract(ctx context.Context, page Page) (Result, error) {
	ctx, span := logger.StartSpan(ctx, "extract.Extract")
	defer span.End()

	inputs := []Input{{Text: page.Text, Words: page.Words}}
	if strings.TrimSpace(page.AltText) != "" {
		inputs = append(inputs, Input{Text: page.AltText})
	}

	var attempts []Attempt
	for n, in := range inputs {
		var (
			hint     Candidate
			fallback *Candidate
		)
		for _, p := range e.passes {
			if p.NeedsLayout && len(in.Words) == 0 {
				continue
			}
			c, err := p.Run(in, hint)
			if err == nil && !c.Complete() {
				err = ErrIncomplete
			}
			if c.CloseTime == "" {
				c.CloseTime = hint.CloseTime
			}
			if err == nil {
				metrics.ExtractionPasses.WithLabelValues(string(p.Name), "ok").Inc()
				span.SetAttributes(attribute.String("pass", string(p.Name)), attribute.Int("input", n))
				return e.resolve(ctx, c, p.Name, false), nil
			}

			metrics.ExtractionPasses.WithLabelValues(string(p.Name), "rejected").Inc()
			logger.Info(ctx, "extraction pass rejected", "pass", p.Name, "input", n, "reason", err, "candidate", c.String())
			attempts = append(attempts, Attempt{Pass: p.Name, Err: err})

			if fallback == nil && errors.Is(err, ErrSuspicious) && c.Complete() {
				kept := c
				fallback = &kept
			}
			hint = c
		}
		if fallback != nil {
			logger.Warn(ctx, "keeping suspicious regex result", "candidate", fallback.String())
			metrics.ExtractionPasses.WithLabelValues(string(PassRegex), "kept_suspicious").Inc()
			return e.resolve(ctx, *fallback, PassRegex, true), nil
		}
	}

	metrics.ExtractionFailures.Inc()
	return Result{}, &FailureError{Preview: preview(page.Text), Attempts: attempts}
}

func (e *Extractor) resolve(ctx context.Context, c Candidate, pass PassName, suspicious bool) Result {
	r := Result{
		Symbol:        market.NormalizeSymbol(c.Symbol),
		Side:          c.Side,
		Entry:         *c.Entry,
		Exit:          *c.Exit,
		Qty:           *c.Qty,
		Pass:          pass,
		SideDefaulted: c.SideDefaulted,
		Suspicious:    suspicious,
	}
	if c.CloseTime != "" {
		t, err := market.ParseTimestamp(c.CloseTime, e.loc)
		if err != nil {
			logger.Warn(ctx, "ignoring unreadable close time", "value", c.CloseTime, "error", err)
		} else {
			r.CloseTime = t
		}
	}
	if r.SideDefaulted {
		logger.Warn(ctx, "side could not be inferred, defaulted to long", "pass", pass, "symbol", r.Symbol)
	}
	logger.Info(ctx, "extracted trade", "pass", pass, "symbol", r.Symbol, "side", r.Side,
		"entry", r.Entry, "exit", r.Exit, "qty", r.Qty, "confident", r.Confident())
	return r
}
