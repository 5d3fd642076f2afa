package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Import many trades, one per line",
	Long: `Import trades written one per line in the same form as "tradebook trade".
Malformed lines are skipped and reported. Trades that duplicate one already
recorded are skipped without asking.

Example:
  tradebook batch trades.txt
  pbpaste | tradebook batch -`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}

	return withApp(cmd.Context(), func(a *app) error {
		res, err := a.ledger.ImportBatch(cmd.Context(), string(data))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Imported %d, skipped %d duplicates, %d malformed\n",
			res.Imported, res.Duplicates, len(res.Malformed))
		for _, b := range res.Malformed {
			fmt.Fprintf(w, "  line %d: %v\n", b.Line, b.Err)
		}
		printTotals(w, res.Totals)
		return nil
	})
}
