package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/ledger"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show or change the account balance",
	Long: `Show the balance overview, or record capital moving in and out.

Subcommands:
  init <amount>      - Set your starting balance (once)
  deposit <amount>   - Record a deposit
  withdraw <amount>  - Record a withdrawal

Examples:
  tradebook balance
  tradebook balance init 10,000
  tradebook balance withdraw 250`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

var balanceInitCmd = &cobra.Command{
	Use:   "init <amount>",
	Short: "Set the starting balance",
	Args:  cobra.ExactArgs(1),
	RunE: balanceOp(func(l *ledger.Ledger) balanceFunc {
		return l.SetInitial
	}),
}

var balanceDepositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Record a deposit",
	Args:  cobra.ExactArgs(1),
	RunE: balanceOp(func(l *ledger.Ledger) balanceFunc {
		return l.Deposit
	}),
}

var balanceWithdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Record a withdrawal",
	Args:  cobra.ExactArgs(1),
	RunE: balanceOp(func(l *ledger.Ledger) balanceFunc {
		return l.Withdraw
	}),
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.AddCommand(balanceInitCmd, balanceDepositCmd, balanceWithdrawCmd)
}

type balanceFunc func(ctx context.Context, operator string, amount float64) (ledger.Balance, error)

func balanceOp(pick func(*ledger.Ledger) balanceFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		amount, err := ledger.ParseAmount(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			b, err := pick(a.ledger)(cmd.Context(), requester, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %.2f recorded for %s\n", cmd.Name(), amount, requester)
			printBalance(cmd.OutOrStdout(), b)
			return nil
		})
	}
}

func runBalance(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		b, err := a.ledger.Balance(cmd.Context())
		if err != nil {
			return err
		}
		printBalance(cmd.OutOrStdout(), b)
		return nil
	})
}

func printBalance(w io.Writer, b ledger.Balance) {
	fmt.Fprintf(w, "  Initial      %.2f\n", b.Initial)
	fmt.Fprintf(w, "  Deposits     %.2f\n", b.Deposits)
	fmt.Fprintf(w, "  Withdrawals  %.2f\n", b.Withdrawals)
	fmt.Fprintf(w, "  Profit       %.4f\n", b.Profit)
	fmt.Fprintf(w, "  Current      %.4f\n", b.Current)
}
