package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
)

// sums accumulates trade amounts without float drift.
type sums struct {
	trades int
	wins   int
	losses int
	pnl    decimal.Decimal
	fee    decimal.Decimal
	rebate decimal.Decimal
	real   decimal.Decimal
}

func (s *sums) add(t journal.TradeRecord) {
	s.trades++
	switch {
	case t.RealizedProfit > 0:
		s.wins++
	case t.RealizedProfit < 0:
		s.losses++
	}
	s.pnl = s.pnl.Add(decimal.NewFromFloat(t.PnL))
	s.fee = s.fee.Add(decimal.NewFromFloat(t.Fee))
	s.rebate = s.rebate.Add(decimal.NewFromFloat(t.Rebate))
	s.real = s.real.Add(decimal.NewFromFloat(t.RealizedProfit))
}

// winRate is wins as a percentage of all trades.
func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// Totals is realized profit for today, this month and overall, cut by
// calendar day in the ledger's zone.
type Totals struct {
	Today float64
	Month float64
	All   float64
}

func (l *Ledger) Totals(ctx context.Context) (Totals, error) {
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return Totals{}, err
	}
	now := l.now().In(l.loc)
	dayStart, monthStart := market.DayStart(now), market.MonthStart(now)
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var today, month, all decimal.Decimal
	for _, t := range trades {
		p := decimal.NewFromFloat(t.RealizedProfit)
		all = all.Add(p)
		ct := t.CloseTime.In(l.loc)
		if !ct.Before(dayStart) && ct.Before(dayEnd) {
			today = today.Add(p)
		}
		if !ct.Before(monthStart) && ct.Before(monthEnd) {
			month = month.Add(p)
		}
	}
	return Totals{
		Today: today.InexactFloat64(),
		Month: month.InexactFloat64(),
		All:   all.InexactFloat64(),
	}, nil
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod defaults to day when s is empty.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("%w: period %q (want day, week, month or all)", ErrMalformed, s)
}

// Since is where the period starts for now. Zero for PeriodAll.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return market.WeekStart(now)
	case PeriodMonth:
		return market.MonthStart(now)
	case PeriodAll:
		return time.Time{}
	}
	return market.DayStart(now)
}

type PeriodStats struct {
	Period Period
	Since  time.Time
	Trades int

	PnL            float64
	Fee            float64
	Rebate         float64
	RealizedProfit float64
	// NetContract is PnL after fees, before rebate.
	NetContract float64

	Balance Balance
}

// PeriodStats sums trades closed since the start of p.
func (l *Ledger) PeriodStats(ctx context.Context, p Period) (PeriodStats, error) {
	since := p.Since(l.now().In(l.loc))
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{From: since})
	if err != nil {
		return PeriodStats{}, err
	}
	var s sums
	for _, t := range trades {
		s.add(t)
	}
	bal, err := l.Balance(ctx)
	if err != nil {
		return PeriodStats{}, err
	}
	return PeriodStats{
		Period:         p,
		Since:          since,
		Trades:         s.trades,
		PnL:            s.pnl.InexactFloat64(),
		Fee:            s.fee.InexactFloat64(),
		Rebate:         s.rebate.InexactFloat64(),
		RealizedProfit: s.real.InexactFloat64(),
		NetContract:    s.pnl.Sub(s.fee).InexactFloat64(),
		Balance:        bal,
	}, nil
}

// DayStats is one settlement day.
type DayStats struct {
	Day    string
	Trades int
	Wins   int
	Losses int

	PnL            float64
	Fee            float64
	Rebate         float64
	RealizedProfit float64
	NetContract    float64
}

func (d DayStats) WinRate() float64 { return winRate(d.Wins, d.Trades) }

type DailyReport struct {
	Days          []DayStats
	TotalRealized float64
	// PendingRebate is the rebate on trades closed at or after
	// PendingSince, which the exchange has not paid out yet.
	PendingRebate float64
	PendingSince  time.Time
}

// DailyReport groups every trade by settlement day, oldest first.
func (l *Ledger) DailyReport(ctx context.Context) (DailyReport, error) {
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return DailyReport{}, err
	}

	cutoff := market.PendingRebateCutoff(l.now().In(l.loc))
	days := map[string]*sums{}
	var total, pending decimal.Decimal
	for _, t := range trades {
		ct := t.CloseTime.In(l.loc)
		day := market.SettlementDay(ct)
		s, ok := days[day]
		if !ok {
			s = &sums{}
			days[day] = s
		}
		s.add(t)
		total = total.Add(decimal.NewFromFloat(t.RealizedProfit))
		if !ct.Before(cutoff) {
			pending = pending.Add(decimal.NewFromFloat(t.Rebate))
		}
	}

	r := DailyReport{
		TotalRealized: total.InexactFloat64(),
		PendingRebate: pending.InexactFloat64(),
		PendingSince:  cutoff,
	}
	for day, s := range days {
		r.Days = append(r.Days, DayStats{
			Day:            day,
			Trades:         s.trades,
			Wins:           s.wins,
			Losses:         s.losses,
			PnL:            s.pnl.InexactFloat64(),
			Fee:            s.fee.InexactFloat64(),
			Rebate:         s.rebate.InexactFloat64(),
			RealizedProfit: s.real.InexactFloat64(),
			NetContract:    s.pnl.Sub(s.fee).InexactFloat64(),
		})
	}
	sort.Slice(r.Days, func(i, j int) bool { return r.Days[i].Day < r.Days[j].Day })
	return r, nil
}

type SymbolStats struct {
	Symbol   string
	Trades   int
	Wins     int
	Losses   int
	Realized float64
}

func (s SymbolStats) WinRate() float64 { return winRate(s.Wins, s.Trades) }

type WinRate struct {
	Total     int
	Wins      int
	Losses    int
	Breakeven int
	// Rate is wins as a percentage of all trades.
	Rate     float64
	BySymbol []SymbolStats
}

// WinRate counts winning, losing and flat trades overall and per symbol.
func (l *Ledger) WinRate(ctx context.Context) (WinRate, error) {
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return WinRate{}, err
	}

	var all sums
	bySymbol := map[string]*sums{}
	for _, t := range trades {
		all.add(t)
		s, ok := bySymbol[t.Symbol]
		if !ok {
			s = &sums{}
			bySymbol[t.Symbol] = s
		}
		s.add(t)
	}

	wr := WinRate{
		Total:     all.trades,
		Wins:      all.wins,
		Losses:    all.losses,
		Breakeven: all.trades - all.wins - all.losses,
		Rate:      winRate(all.wins, all.trades),
	}
	for sym, s := range bySymbol {
		wr.BySymbol = append(wr.BySymbol, SymbolStats{
			Symbol:   sym,
			Trades:   s.trades,
			Wins:     s.wins,
			Losses:   s.losses,
			Realized: s.real.InexactFloat64(),
		})
	}
	sort.Slice(wr.BySymbol, func(i, j int) bool { return wr.BySymbol[i].Symbol < wr.BySymbol[j].Symbol })
	return wr, nil
}

type EquityPoint struct {
	Time       time.Time
	Cumulative float64
}

// EquityCurve is cumulative realized profit trade by trade in close time
// order. It starts with a zero point at the first trade's close time and
// is empty when there are no trades.
func (l *Ledger) EquityCurve(ctx context.Context) ([]EquityPoint, error) {
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	points := make([]EquityPoint, 0, len(trades)+1)
	points = append(points, EquityPoint{Time: trades[0].CloseTime.In(l.loc)})
	var cum decimal.Decimal
	for _, t := range trades {
		cum = cum.Add(decimal.NewFromFloat(t.RealizedProfit))
		points = append(points, EquityPoint{Time: t.CloseTime.In(l.loc), Cumulative: cum.InexactFloat64()})
	}
	return points, nil
}
