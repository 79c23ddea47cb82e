// Package commands implements the rapidserver command line interface.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BinaryCat17/RapidServer/internal/logger"
	"github.com/BinaryCat17/RapidServer/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rapidserver",
	Short: "Control plane server for hydroponic farm devices",
	Long: `RapidServer bridges browser clients and farm devices over WebSocket.

Clients sign in, attach their farm, and send device-control commands;
telemetry from the device is relayed back to every open client session
of the owner.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file")
}

// loadConfig loads the configuration and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
