// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// addRunCommand adds the long-running monitor command.
func addRunCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the order monitor until interrupted",
		Long: `Start the background monitor that watches symbols with resting orders
and fills them when their trigger conditions are met. Runs until
interrupted with Ctrl+C, then finishes any in-flight evaluation and
saves state before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			app.Monitor.Start(context.Background())
			output.Info("Monitor running (interval %s). Press Ctrl+C to stop.",
				app.Config.Monitor.Interval)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			signal.Stop(sigCh)

			app.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
			output.Info("Stopping monitor...")
			app.Monitor.Stop()

			ctx, cancel := commandContext()
			defer cancel()
			if err := reportOutcome(output, app.Engine.Checkpoint(ctx)); err != nil {
				return err
			}
			output.Success("Stopped")
			return nil
		},
	}
}
