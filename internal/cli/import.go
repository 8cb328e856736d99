package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// addImportCommand adds the trade history import command.
func addImportCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import trade history from a CSV file",
		Long: `Import replays a CSV trade history into the account. Required columns
are date, asset, asset_type, side, quantity and price, in any order;
buys rebuild holdings at their weighted average cost and sells reduce
them. Cash is not affected. Rows that fail validation are skipped and
reported.`,
		Example: `  papertrader import trades.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			f, err := os.Open(args[0])
			if err != nil {
				output.Error("Cannot open %s: %v", args[0], err)
				return err
			}
			defer f.Close()

			ctx, cancel := commandContext()
			defer cancel()

			res, err := app.Engine.ImportTrades(ctx, f)
			if err := reportOutcome(output, err); err != nil {
				output.Error("Import failed: %v", err)
				for _, example := range res.Examples {
					output.Dim("  %s", example)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"imported": res.Imported,
					"skipped":  res.Skipped,
					"errors":   res.Examples,
				})
			}

			output.Success("Imported %d trades (%d skipped)", res.Imported, res.Skipped)
			if res.Errors > 0 {
				output.Warning("%d rows had errors:", res.Errors)
				for _, example := range res.Examples {
					output.Dim("  %s", example)
				}
			}
			return nil
		},
	}
}
