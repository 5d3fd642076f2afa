package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
)

var tradeCmd = &cobra.Command{
	Use:   "trade <date> <time> <symbol> <side> <entry> <exit> <qty>",
	Short: "Record a closed trade by hand",
	Long: `Record one closed position. The side is long/short, buy/sell or 多/空.
Commas in numbers are ignored.

If the trade looks like one already recorded (same symbol, side and close
time, prices and quantity within tolerance) you are asked whether to record
it anyway. Use --yes or --no to answer up front, or --defer to leave it
pending for "tradebook confirm" (useful with the redis pending backend).

Example:
  tradebook trade 2026-01-11 14:52:41 eth 多 3090.4 3094.2 0.64`,
	Args: cobra.MinimumNArgs(7),
	RunE: runTrade,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <yes|no>",
	Short: "Answer a pending duplicate confirmation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfirm,
}

var (
	answerYes   bool
	answerNo    bool
	answerLater bool
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(confirmCmd)

	for _, c := range []*cobra.Command{tradeCmd, screenshotCmd} {
		c.Flags().BoolVarP(&answerYes, "yes", "y", false, "record duplicates without asking")
		c.Flags().BoolVarP(&answerNo, "no", "n", false, "discard duplicates without asking")
		c.Flags().BoolVar(&answerLater, "defer", false, "leave duplicates pending")
		c.MarkFlagsMutuallyExclusive("yes", "no", "defer")
	}
}

func runTrade(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		sub, err := ledger.ParseTradeArgs(args, a.loc)
		if err != nil {
			return err
		}
		out, err := a.ledger.Submit(cmd.Context(), requester, sub)
		if err != nil {
			return err
		}
		return settle(cmd, a, out)
	})
}

func runConfirm(cmd *cobra.Command, args []string) error {
	d, err := confirm.ParseDecision(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app) error {
		out, err := a.ledger.Decide(cmd.Context(), requester, d)
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out)
		return nil
	})
}

// settle prints out and, for a held duplicate, gets the decision from
// the flags or the terminal.
func settle(cmd *cobra.Command, a *app, out ledger.Outcome) error {
	w := cmd.OutOrStdout()
	printOutcome(w, out)
	if out.State != confirm.DuplicateDetected {
		return nil
	}

	var d confirm.Decision
	switch {
	case answerLater:
		fmt.Fprintf(w, "Left pending (%s). Answer with: tradebook confirm yes|no\n", out.PendingID)
		return nil
	case answerYes:
		d = confirm.Yes
	case answerNo:
		d = confirm.No
	default:
		d = prompt(cmd.InOrStdin(), w, "Record it anyway? [y/N] ")
	}

	out, err := a.ledger.Decide(cmd.Context(), requester, d)
	if err != nil {
		return err
	}
	printOutcome(w, out)
	return nil
}

// prompt reads one answer; anything but yes is no.
func prompt(r io.Reader, w io.Writer, question string) confirm.Decision {
	fmt.Fprint(w, question)
	line, _ := bufio.NewReader(r).ReadString('\n')
	d, err := confirm.ParseDecision(strings.TrimSpace(line))
	if err != nil {
		return confirm.No
	}
	return d
}

func printOutcome(w io.Writer, out ledger.Outcome) {
	switch out.State {
	case confirm.Committed:
		t := out.Trade
		fmt.Fprintf(w, "✓ Recorded %s\n", journal.FormatTradeLine(t))
		fmt.Fprintf(w, "  PnL %.4f  Fee %.4f  Rebate %.4f  Realized %.4f\n", t.PnL, t.Fee, t.Rebate, t.RealizedProfit)
		printTotals(w, out.Totals)
	case confirm.DuplicateDetected:
		fmt.Fprintf(w, "⚠ Looks like a trade already recorded: %s\n", journal.FormatTradeLine(out.Trade))
	case confirm.Discarded:
		fmt.Fprintln(w, "✗ Duplicate discarded")
	}
}

func printTotals(w io.Writer, t ledger.Totals) {
	fmt.Fprintf(w, "  Today %.4f | Month %.4f | All %.4f\n", t.Today, t.Month, t.All)
}
