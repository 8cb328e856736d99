// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// addAccountCommands adds account cash management commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newFundCmd(app))
	rootCmd.AddCommand(newWithdrawCmd(app))
	rootCmd.AddCommand(newBalanceCmd(app))
	rootCmd.AddCommand(newResetCmd(app))
}

func newFundCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "fund <amount>",
		Short:   "Add cash to the account",
		Example: `  papertrader fund 10000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			amount, ok := ParseDecimalArg(args[0])
			if !ok {
				output.Error("Invalid amount: %s", args[0])
				return fmt.Errorf("invalid amount")
			}

			ctx, cancel := commandContext()
			defer cancel()

			if err := reportOutcome(output, app.Engine.Deposit(ctx, amount)); err != nil {
				output.Error("Fund failed: %v", err)
				return err
			}
			output.Success("Added %s to account", FormatMoney(amount))
			output.Printf("  Balance: %s\n", FormatMoney(app.Engine.CashBalance()))
			return nil
		},
	}
}

func newWithdrawCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "withdraw <amount>",
		Short:   "Withdraw cash from the account",
		Example: `  papertrader withdraw 2500`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			amount, ok := ParseDecimalArg(args[0])
			if !ok {
				output.Error("Invalid amount: %s", args[0])
				return fmt.Errorf("invalid amount")
			}

			ctx, cancel := commandContext()
			defer cancel()

			if err := reportOutcome(output, app.Engine.Withdraw(ctx, amount)); err != nil {
				output.Error("Withdraw failed: %v", err)
				return err
			}
			output.Success("Withdrew %s from account", FormatMoney(amount))
			output.Printf("  Balance: %s\n", FormatMoney(app.Engine.CashBalance()))
			return nil
		},
	}
}

func newBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the cash balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			balance := app.Engine.CashBalance()

			if output.IsJSON() {
				return output.JSON(map[string]string{"cash_balance": balance.String()})
			}
			output.Printf("Cash Balance: %s\n", FormatMoney(balance))
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the account to its initial state",
		Long: `Reset discards all holdings, trades and resting orders and seeds a
fresh account with the configured initial balance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				output.Warning("This discards all holdings, trades and open orders. Re-run with --yes to confirm.")
				return nil
			}

			ctx, cancel := commandContext()
			defer cancel()

			balance := decimal.NewFromFloat(app.Config.Trading.InitialBalance)
			if err := reportOutcome(output, app.Engine.Reset(ctx, balance)); err != nil {
				output.Error("Reset failed: %v", err)
				return err
			}
			output.Success("Account reset with %s", FormatMoney(balance))
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm the reset")
	return cmd
}
