// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"paper-trader/internal/models"
)

// addMarketCommands adds quote and watchlist commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newUnwatchCmd(app))
}

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol> [symbol...]",
		Short: "Fetch current prices",
		Example: `  papertrader price AAPL
  papertrader price AAPL MSFT GOOG`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, cancel := commandContext()
			defer cancel()

			quotes := make([]models.Quote, 0, len(args))
			var lastErr error
			for _, arg := range args {
				symbol := strings.ToUpper(arg)
				price, err := app.Quotes.GetPrice(ctx, symbol)
				if err != nil {
					lastErr = err
					if !output.IsJSON() {
						output.Warning("%-8s quote unavailable: %v", symbol, err)
					}
					continue
				}
				quotes = append(quotes, models.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()})
				if !output.IsJSON() {
					output.Printf("%-8s %s\n", symbol, FormatMoney(price))
				}
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}
			if len(quotes) == 0 {
				return lastErr
			}
			return nil
		},
	}
}

func newWatchlistCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watchlist",
		Short: "Show the watchlist with current prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols := app.Engine.Watchlist()

			if len(symbols) == 0 {
				if output.IsJSON() {
					return output.JSON([]string{})
				}
				output.Info("Watchlist is empty")
				return nil
			}

			ctx, cancel := commandContext()
			defer cancel()

			if output.IsJSON() {
				return output.JSON(symbols)
			}

			output.Bold("WATCHLIST")
			for _, symbol := range symbols {
				price, err := app.Quotes.GetPrice(ctx, symbol)
				if err != nil {
					output.Printf("%-8s unavailable\n", symbol)
					continue
				}
				output.Printf("%-8s %s\n", symbol, FormatMoney(price))
			}
			return nil
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <symbol>",
		Short: "Add a symbol to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])

			ctx, cancel := commandContext()
			defer cancel()

			if err := reportOutcome(output, app.Engine.Watch(ctx, symbol)); err != nil {
				return err
			}
			output.Success("Watching %s", symbol)
			return nil
		},
	}
}

func newUnwatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unwatch <symbol>",
		Short: "Remove a symbol from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])

			ctx, cancel := commandContext()
			defer cancel()

			if err := reportOutcome(output, app.Engine.Unwatch(ctx, symbol)); err != nil {
				return err
			}
			output.Success("Removed %s from watchlist", symbol)
			return nil
		},
	}
}
