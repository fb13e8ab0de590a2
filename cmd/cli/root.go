package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/lib/log"
	"github.com/defeedco/wanderlens/pkg/photos/flickr"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

// rootCmd is a base command.
var rootCmd = &cobra.Command{
	Use:          "wanderlens",
	Short:        "Wanderlens photo tracking tools",
	SilenceUsage: true,
}

type cliConfig struct {
	Log      log.Config      `env:""`
	Flickr   flickr.Config   `env:""`
	Tracking tracking.Config `env:""`
}

func loadConfig() (*cliConfig, *zerolog.Logger, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg cliConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := lib.ValidateStruct(&cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	// Keep stdout for command output.
	cfg.Log.Output = log.LogOutputStderr
	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return &cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
