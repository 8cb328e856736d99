package main

import (
	"fmt"
	"os"

	"paper-trader/internal/cli"
	"paper-trader/internal/config"
	"paper-trader/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configDirFromArgs(os.Args[1:]))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Console = cfg.Logging.Console
	logCfg.File = cfg.Logging.File
	if cfg.Logging.Path != "" {
		logCfg.FilePath = cfg.Logging.Path
	}
	logger := logging.NewLoggerWithConfig(logCfg)

	rootCmd, app, err := cli.NewRootCmd(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return rootCmd.Execute()
}

// configDirFromArgs extracts the --config flag before cobra parses the
// command line, since the config file decides how the command tree is
// wired in the first place.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" && i+1 < len(args):
			return args[i+1]
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			return arg[len("--config="):]
		}
	}
	return ""
}
