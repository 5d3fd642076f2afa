package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/market"
)

var queryCmd = &cobra.Command{
	Use:   "query [day|week|month|all]",
	Short: "Profit since the start of a period",
	Long: `Sum trades closed since today 00:00, Monday 00:00, the 1st of the month
or ever. Defaults to day.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Profit per settlement day (08:00 to 08:00)",
	Args:  cobra.NoArgs,
	RunE:  runDaily,
}

var winRateCmd = &cobra.Command{
	Use:   "winrate",
	Short: "Win rate overall and per symbol",
	Args:  cobra.NoArgs,
	RunE:  runWinRate,
}

var equityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Cumulative realized profit trade by trade",
	Args:  cobra.NoArgs,
	RunE:  runEquity,
}

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write trades and reports as CSV files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(queryCmd, dailyCmd, winRateCmd, equityCmd, exportCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, err := ledger.ParsePeriod(firstArg(args))
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app) error {
		st, err := a.ledger.PeriodStats(cmd.Context(), p)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		since := "the beginning"
		if !st.Since.IsZero() {
			since = market.FormatTimestamp(st.Since)
		}
		fmt.Fprintf(w, "Period: %s (since %s), %d trades\n", st.Period, since, st.Trades)
		fmt.Fprintf(w, "  Contract PnL  %.4f\n", st.NetContract)
		fmt.Fprintf(w, "  Rebate        %.4f\n", st.Rebate)
		fmt.Fprintf(w, "  Realized      %.4f\n", st.RealizedProfit)
		fmt.Fprintf(w, "  Balance       %.4f\n", st.Balance.Current)
		return nil
	})
}

func runDaily(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		r, err := a.ledger.DailyReport(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(r.Days) == 0 {
			fmt.Fprintln(w, "No trades recorded")
			return nil
		}
		fmt.Fprintf(w, "%-10s %6s %12s %12s %12s %8s\n", "Day", "Trades", "Contract", "Rebate", "Realized", "WinRate")
		for _, d := range r.Days {
			fmt.Fprintf(w, "%-10s %6d %12.4f %12.4f %12.4f %7.1f%%\n",
				d.Day, d.Trades, d.NetContract, d.Rebate, d.RealizedProfit, d.WinRate())
		}
		fmt.Fprintf(w, "Total realized: %.4f\n", r.TotalRealized)
		fmt.Fprintf(w, "Pending rebate since %s: %.4f\n", market.FormatTimestamp(r.PendingSince), r.PendingRebate)
		return nil
	})
}

func runWinRate(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		wr, err := a.ledger.WinRate(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Trades %d: %d won, %d lost, %d flat, win rate %.1f%%\n",
			wr.Total, wr.Wins, wr.Losses, wr.Breakeven, wr.Rate)
		for _, s := range wr.BySymbol {
			fmt.Fprintf(w, "  %-8s %4d trades %6.1f%% %12.4f\n", s.Symbol, s.Trades, s.WinRate(), s.Realized)
		}
		return nil
	})
}

func runEquity(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		points, err := a.ledger.EquityCurve(cmd.Context())
		if err != nil {
			return err
		}
		return ledger.WriteEquityCSV(cmd.OutOrStdout(), points)
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	dir := firstArg(args)
	if dir == "" {
		dir = "."
	}
	return withApp(cmd.Context(), func(a *app) error {
		paths, err := a.ledger.ExportCSV(cmd.Context(), dir)
		if err != nil {
			return err
		}
		printPaths(cmd.OutOrStdout(), paths)
		return nil
	})
}

func printPaths(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "✓ Wrote %s\n", p)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
