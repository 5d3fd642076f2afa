package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/market"
)

var ErrNoTrades = errors.New("no trades recorded")

// Export file names written by ExportCSV.
const (
	TradesFile  = "trades.csv"
	DailyFile   = "daily.csv"
	EquityFile  = "equity.csv"
	WinRateFile = "winrate.csv"
)

// ExportCSV writes the trade list, the settlement-day summary, the equity
// curve and the win-rate summary into dir and returns the paths written.
func (l *Ledger) ExportCSV(ctx context.Context, dir string) ([]string, error) {
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	daily, err := l.DailyReport(ctx)
	if err != nil {
		return nil, err
	}
	curve, err := l.EquityCurve(ctx)
	if err != nil {
		return nil, err
	}
	wr, err := l.WinRate(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TradesFile, func(w io.Writer) error { return journal.WriteTradesCSV(w, trades) }},
		{DailyFile, func(w io.Writer) error { return WriteDailyCSV(w, daily) }},
		{EquityFile, func(w io.Writer) error { return WriteEquityCSV(w, curve) }},
		{WinRateFile, func(w io.Writer) error { return WriteWinRateCSV(w, wr) }},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, fmt.Errorf("export %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	logger.Info(ctx, "exported ledger", "dir", dir, "trades", len(trades))
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteDailyCSV(w io.Writer, r DailyReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "net_contract", "fee", "rebate", "real_profit", "win_rate", "trades"}); err != nil {
		return err
	}
	for _, d := range r.Days {
		if err := cw.Write([]string{
			d.Day,
			journal.F(d.NetContract),
			journal.F(d.Fee),
			journal.F(d.Rebate),
			journal.F(d.RealizedProfit),
			strconv.FormatFloat(d.WinRate(), 'f', 2, 64),
			strconv.Itoa(d.Trades),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteEquityCSV(w io.Writer, points []EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "cumulative"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{market.FormatTimestamp(p.Time), journal.F(p.Cumulative)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteWinRateCSV(w io.Writer, wr WinRate) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"item", "value"},
		{"total", strconv.Itoa(wr.Total)},
		{"wins", strconv.Itoa(wr.Wins)},
		{"losses", strconv.Itoa(wr.Losses)},
		{"breakeven", strconv.Itoa(wr.Breakeven)},
		{"win_rate", strconv.FormatFloat(wr.Rate, 'f', 2, 64)},
	}
	for _, s := range wr.BySymbol {
		rows = append(rows, []string{
			"win_rate:" + s.Symbol,
			strconv.FormatFloat(s.WinRate(), 'f', 2, 64),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
