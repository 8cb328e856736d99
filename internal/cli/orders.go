// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paper-trader/internal/models"
)

// addOrderCommands adds resting order management commands.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPlaceOrderCmd(app, models.OrderTypeLimitBuy, "buylimit",
		"Place a limit buy order",
		"Buys when the price drops to or below the trigger price."))
	rootCmd.AddCommand(newPlaceOrderCmd(app, models.OrderTypeLimitSell, "selllimit",
		"Place a limit sell order",
		"Sells when the price rises to or above the trigger price."))
	rootCmd.AddCommand(newPlaceOrderCmd(app, models.OrderTypeStopLoss, "stoploss",
		"Place a stop loss order",
		"Sells when the price drops to or below the trigger price."))
	rootCmd.AddCommand(newPlaceOrderCmd(app, models.OrderTypeTakeProfit, "takeprofit",
		"Place a take profit order",
		"Sells when the price rises to or above the trigger price. Fills at the current price, which may exceed the trigger."))
	rootCmd.AddCommand(newCancelCmd(app))
	rootCmd.AddCommand(newOrdersCmd(app))
}

func newPlaceOrderCmd(app *App, orderType models.OrderType, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <symbol> <quantity> <trigger-price>", use),
		Short: short,
		Long:  long,
		Example: fmt.Sprintf(`  papertrader %s AAPL 10 150.00
  papertrader %s MSFT 2.5 420`, use, use),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			quantity, ok := ParseDecimalArg(args[1])
			if !ok || !quantity.IsPositive() {
				output.Error("Invalid quantity: %s", args[1])
				return fmt.Errorf("invalid quantity")
			}
			trigger, ok := ParseDecimalArg(args[2])
			if !ok || !trigger.IsPositive() {
				output.Error("Invalid trigger price: %s", args[2])
				return fmt.Errorf("invalid trigger price")
			}

			ctx, cancel := commandContext()
			defer cancel()

			orderID, err := app.Engine.PlaceOrder(ctx, orderType, symbol, quantity, trigger)
			if err := reportOutcome(output, err); err != nil {
				output.Error("Order rejected: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"order_id":      orderID,
					"type":          string(orderType),
					"symbol":        symbol,
					"quantity":      quantity.String(),
					"trigger_price": trigger.String(),
				})
			}

			output.Success("Placed %s: %s %s @ trigger %s",
				orderType, FormatQuantity(quantity), symbol, FormatMoney(trigger))
			output.Dim("  Order ID: %s", orderID)
			return nil
		},
	}
}

func newCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a resting order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, cancel := commandContext()
			defer cancel()

			order, err := app.Engine.CancelOrder(ctx, args[0])
			if err := reportOutcome(output, err); err != nil {
				output.Error("Cancel failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"order_id": order.ID,
					"type":     string(order.Type),
					"symbol":   order.Symbol,
				})
			}

			output.Success("Cancelled %s: %s %s %s @ trigger %s",
				order.ID, order.Type, FormatQuantity(order.Quantity), order.Symbol, FormatMoney(order.TriggerPrice))
			return nil
		},
	}
}

func newOrdersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List resting orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			orders := app.Engine.OpenOrders()

			if output.IsJSON() {
				return output.JSON(orders)
			}

			if len(orders) == 0 {
				output.Info("No resting orders")
				return nil
			}

			output.Bold("OPEN ORDERS")
			output.Printf("%-24s %-12s %-8s %12s %12s  %s\n",
				"ID", "TYPE", "SYMBOL", "QUANTITY", "TRIGGER", "PLACED")
			for _, o := range orders {
				output.Printf("%-24s %-12s %-8s %12s %12s  %s\n",
					o.ID, o.Type, o.Symbol,
					FormatQuantity(o.Quantity), FormatMoney(o.TriggerPrice), FormatTime(o.PlacedAt))
			}

			for _, symbol := range app.Engine.RestingSymbols() {
				if exposure := app.Engine.SellExposure(symbol); exposure.IsPositive() {
					output.Dim("  %s sell exposure: %s", symbol, FormatQuantity(exposure))
				}
			}
			return nil
		},
	}
}
