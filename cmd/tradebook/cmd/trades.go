package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent trades",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var viewCmd = &cobra.Command{
	Use:   "view <trade-id>",
	Short: "Show one trade as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Renumber trades in close time order",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every trade and restart ids at 1",
	Long: `Delete every trade. Balance operations are kept.
Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var (
	listLimit int
	listOrg   bool
	clearYes  bool
)

func init() {
	rootCmd.AddCommand(listCmd, viewCmd, deleteCmd, reindexCmd, clearCmd)

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", ledger.DefaultListLimit, "number of trades")
	listCmd.Flags().BoolVar(&listOrg, "org", false, "print Org-mode entries")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "really delete every trade")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: trade id %q", ledger.ErrMalformed, s)
	}
	return id, nil
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		trades, err := a.ledger.List(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(trades) == 0 {
			fmt.Fprintln(w, "No trades recorded")
			return nil
		}
		if listOrg {
			fmt.Fprint(w, journal.FormatTradesOrg(trades))
			return nil
		}
		for _, t := range trades {
			fmt.Fprintln(w, journal.FormatTradeLine(t))
		}
		return nil
	})
}

func runView(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app) error {
		t, err := a.ledger.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), journal.FormatTradeOrg(t))
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.ledger.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted trade #%d\n", id)
		return nil
	})
}

func runReindex(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.ledger.Reindex(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Trades renumbered by close time")
		return nil
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to delete every trade without --yes")
	}
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.ledger.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ All trades deleted")
		return nil
	})
}
