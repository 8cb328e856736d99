// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paper-trader/internal/config"
	"paper-trader/internal/engine"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/logging"
	"paper-trader/internal/quote"
	"paper-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Quotes  quote.Source
	Store   store.Store
	Engine  *engine.Engine
	Monitor *engine.Monitor
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, *App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	quotes, err := buildQuoteSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	app.Quotes = quote.NewCache(quotes, cfg.Quote.CacheTTL)

	dataStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing store: %w", err)
	}
	app.Store = dataStore

	eng, err := engine.New(context.Background(), engine.Config{
		Quotes:         app.Quotes,
		Store:          app.Store,
		Logger:         logging.WithComponent(logger, "engine"),
		InitialBalance: decimal.NewFromFloat(cfg.Trading.InitialBalance),
	})
	if err != nil {
		dataStore.Close()
		return nil, nil, fmt.Errorf("initializing engine: %w", err)
	}
	app.Engine = eng

	app.Monitor = engine.NewMonitor(engine.MonitorConfig{
		Engine:   eng,
		Quotes:   app.Quotes,
		Interval: cfg.Monitor.Interval,
		Logger:   logging.WithComponent(logger, "monitor"),
	})

	rootCmd := &cobra.Command{
		Use:   "papertrader",
		Short: "Paper Trader - simulated stock trading CLI",
		Long: `Paper Trader is a simulated trading CLI with real market prices.

It tracks a virtual cash balance, holdings and trade history, supports
market orders plus resting limit, stop-loss and take-profit orders, and
runs a background monitor that fills resting orders when live prices
cross their triggers. No real money moves.

Use 'papertrader help <command>' for details on a command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/paper-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addAccountCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addImportCommand(rootCmd, app)
	addRunCommand(rootCmd, app)

	return rootCmd, app, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.Monitor != nil && a.Monitor.IsRunning() {
		a.Monitor.Stop()
	}
	if a.Engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Engine.Checkpoint(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("Final checkpoint failed")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Store close failed")
		}
	}
}

func buildQuoteSource(cfg *config.Config) (quote.Source, error) {
	switch cfg.Quote.Provider {
	case "kite":
		return quote.NewKiteSource(quote.KiteConfig{
			APIKey:      cfg.Quote.Kite.APIKey,
			AccessToken: cfg.Quote.Kite.AccessToken,
			Exchange:    cfg.Quote.Kite.Exchange,
		})
	default:
		return quote.NewYahooSource(quote.YahooConfig{
			Timeout: cfg.Quote.Timeout,
		}), nil
	}
}

// reportOutcome prints the result of a mutating operation. A
// persistence failure after a successful mutation is a durability
// warning, not an operation failure: the fill stands.
func reportOutcome(output *Output, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.Is(err, apperrors.ErrPersistence) {
		output.Warning("State save failed; the operation succeeded and will be persisted on the next save: %v", err)
		return nil
	}
	return err
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
