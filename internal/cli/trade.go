// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// addTradingCommands adds market order commands.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMarketOrderCmd(app, models.SideBuy))
	rootCmd.AddCommand(newMarketOrderCmd(app, models.SideSell))
}

func newMarketOrderCmd(app *App, side models.Side) *cobra.Command {
	verb := "buy"
	if side == models.SideSell {
		verb = "sell"
	}

	return &cobra.Command{
		Use:   fmt.Sprintf("%s <symbol> <quantity>", verb),
		Short: fmt.Sprintf("Execute a market %s at the current price", verb),
		Long: fmt.Sprintf(`Execute a market %s order. The current price is fetched from the
quote source and the fill happens immediately at that price.`, verb),
		Example: fmt.Sprintf(`  papertrader %s AAPL 10
  papertrader %s MSFT 2.5`, verb, verb),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			quantity, ok := ParseDecimalArg(args[1])
			if !ok || !quantity.IsPositive() {
				output.Error("Invalid quantity: %s", args[1])
				return fmt.Errorf("invalid quantity")
			}

			ctx, cancel := commandContext()
			defer cancel()

			trade, err := app.Engine.ExecuteMarket(ctx, symbol, side, quantity)
			if err := reportOutcome(output, err); err != nil {
				var quoteErr *apperrors.QuoteError
				if apperrors.As(err, &quoteErr) {
					output.Error("No quote for %s: %v", quoteErr.Symbol, quoteErr.Err)
				} else {
					output.Error("Order failed: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"symbol":   trade.Symbol,
					"side":     string(trade.Side),
					"quantity": trade.Quantity.String(),
					"price":    trade.PricePer.String(),
				})
			}

			output.Success("Filled %s %s %s @ %s",
				strings.ToUpper(verb), FormatQuantity(trade.Quantity), symbol, FormatMoney(trade.PricePer))
			output.Printf("  Total:   %s\n", FormatMoney(trade.PricePer.Mul(trade.Quantity)))
			output.Printf("  Balance: %s\n", FormatMoney(app.Engine.CashBalance()))
			return nil
		},
	}
}
