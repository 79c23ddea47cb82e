package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BinaryCat17/RapidServer/internal/hub"
	"github.com/BinaryCat17/RapidServer/internal/logger"
	"github.com/BinaryCat17/RapidServer/internal/server"
	"github.com/BinaryCat17/RapidServer/internal/static"
	"github.com/BinaryCat17/RapidServer/pkg/controlplane/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Warn("failed to close store", "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if created, err := st.EnsureDefaultGroups(ctx); err != nil {
			return fmt.Errorf("failed to provision groups: %w", err)
		} else if created {
			logger.Info("provisioned default groups")
		}
		if _, err := st.RegisterFile(ctx, "RapidControl.html"); err != nil {
			return fmt.Errorf("failed to register UI assets: %w", err)
		}

		srv := server.New(server.Config{
			ListenAddress:   cfg.ListenAddress,
			ShutdownTimeout: cfg.ShutdownTimeout,
			EnableMetrics:   cfg.Metrics.Enabled,
		}, server.NewCore(st, hub.New()), static.NewCache(cfg.PublicRoot))

		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
