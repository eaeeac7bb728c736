package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kinobot/internal/app"
	"kinobot/internal/config"
	"kinobot/internal/logging"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receive updates by long polling",
	RunE:  runPoll,
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Register a webhook and receive updates over HTTP",
	RunE:  runWebhook,
}

func runPoll(cmd *cobra.Command, _ []string) error {
	return runBot(cmd, config.ModePolling)
}

func runWebhook(cmd *cobra.Command, _ []string) error {
	return runBot(cmd, config.ModeWebhook)
}

func runBot(cmd *cobra.Command, mode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Name() != rootCmd.Name() {
		cfg.Mode = mode
	}
	log, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()

	log.Info("kinobot starting", zap.String("mode", cfg.Mode), zap.String("storage", cfg.Storage.Driver),
		zap.Int("admins", len(cfg.AdminIDs)))
	if cfg.Mode == config.ModeWebhook {
		err = a.RunWebhook(ctx)
	} else {
		err = a.RunPolling(ctx)
	}
	log.Info("kinobot stopped")
	return err
}
