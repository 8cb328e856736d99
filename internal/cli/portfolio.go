// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"github.com/spf13/cobra"
)

// addPortfolioCommands adds portfolio inspection commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHoldingsCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newPnLCmd(app))
}

func newHoldingsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List current holdings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			holdings := app.Engine.Holdings()

			if output.IsJSON() {
				return output.JSON(holdings)
			}

			if len(holdings) == 0 {
				output.Info("No holdings")
				return nil
			}

			output.Bold("HOLDINGS")
			output.Printf("%-8s %12s %14s %14s\n", "SYMBOL", "QUANTITY", "AVG COST", "COST BASIS")
			for _, h := range holdings {
				output.Printf("%-8s %12s %14s %14s\n",
					h.Symbol, FormatQuantity(h.Quantity), FormatMoney(h.AverageCost),
					FormatMoney(h.AverageCost.Mul(h.Quantity)))
			}
			return nil
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show trade history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trades := app.Engine.TradeHistory()
			if limit > 0 && len(trades) > limit {
				trades = trades[len(trades)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades yet")
				return nil
			}

			output.Bold("TRADE HISTORY")
			output.Printf("%-20s %-6s %-12s %-8s %12s %14s %14s\n",
				"TIME", "SIDE", "TYPE", "SYMBOL", "QUANTITY", "PRICE", "CASH FLOW")
			for _, t := range trades {
				side := output.Green(string(t.Side))
				if t.Side == "SELL" {
					side = output.Red(string(t.Side))
				}
				output.Printf("%-20s %-6s %-12s %-8s %12s %14s %14s\n",
					FormatTime(t.Timestamp), side, t.OrderType, t.Symbol,
					FormatQuantity(t.Quantity), FormatMoney(t.PricePer), FormatPnL(t.CashFlow()))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N trades")
	return cmd
}

func newPnLCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pnl",
		Short: "Show unrealized profit and loss",
		Long: `Fetch current prices for every held symbol and report unrealized
profit and loss per position. Symbols whose quotes are unavailable
are skipped with a warning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, cancel := commandContext()
			defer cancel()

			positions, total, err := app.Engine.UnrealizedPnL(ctx)
			if err != nil {
				output.Warning("Some quotes unavailable: %v", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]any{
					"positions": positions,
					"total":     total.String(),
				})
			}

			if len(positions) == 0 {
				output.Info("No priced positions")
				return nil
			}

			output.Bold("UNREALIZED P&L")
			output.Printf("%-8s %12s %14s %14s %14s %14s\n",
				"SYMBOL", "QUANTITY", "AVG COST", "PRICE", "VALUE", "UNREALIZED")
			for _, p := range positions {
				output.Printf("%-8s %12s %14s %14s %14s %14s\n",
					p.Symbol, FormatQuantity(p.Quantity), FormatMoney(p.AverageCost),
					FormatMoney(p.CurrentPrice), FormatMoney(p.MarketValue), FormatPnL(p.Unrealized))
			}
			output.Println()
			output.Printf("Total: %s\n", FormatPnL(total))
			return nil
		},
	}
}
