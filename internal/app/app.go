// Package app wires configuration, storage, the Telegram client and the router
// into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kinobot/api"
	"kinobot/internal/bot"
	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/dialog"
	"kinobot/internal/gate"
	"kinobot/internal/storage"
	"kinobot/internal/tg"
)

const sweepInterval = time.Minute

// Store is the persistent half of the bot, usable without Telegram.
type Store struct {
	Backend  storage.Backend
	Catalog  *catalog.Catalog
	Channels *gate.Channels
}

// OpenStore opens the configured backend and loads the catalog and the
// required-channel set from it.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Store, error) {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	cat, err := catalog.Open(ctx, backend, log)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, fmt.Errorf("catalog: %w", err)
	}
	channels, err := gate.LoadChannels(ctx, backend, cfg.Gate.RequiredChannels, log)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, fmt.Errorf("channels: %w", err)
	}
	return &Store{Backend: backend, Catalog: cat, Channels: channels}, nil
}

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *Store
	client *tg.Client
	dialog *dialog.Engine
	router *bot.Router
}

// New validates cfg and builds every component. The Telegram client is
// authorized against the Bot API before New returns.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	client, err := tg.NewClient(cfg.BotToken, log.Named("tg"))
	if err != nil {
		_ = store.Backend.Close(ctx)
		return nil, err
	}

	engine := dialog.New(store.Catalog, store.Channels, dialog.Options{
		Admins:        cfg.AdminIDs,
		IdleTTL:       cfg.Admin.SessionTTL.Duration,
		RejectRestart: cfg.Admin.RejectRestart,
	}, log.Named("dialog"))

	router := bot.New(bot.Deps{
		Messenger: client,
		Catalog:   store.Catalog,
		Channels:  store.Channels,
		Gate:      gate.New(store.Channels, client, cfg.Gate.FailOpen, log.Named("gate")),
		Dialog:    engine,
		Users:     store.Backend,
		Log:       log.Named("bot"),
	})

	return &App{cfg: cfg, log: log, store: store, client: client, dialog: engine, router: router}, nil
}

// RunPolling long-polls Telegram and serves the health page until ctx ends.
func (a *App) RunPolling(ctx context.Context) error {
	a.log.Info("bot starting", zap.String("bot", "@"+a.client.Username()), zap.String("mode", "poll"))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.client.Poll(gctx, a.cfg.Workers, a.router.Handle) })
	g.Go(func() error { return a.serve(gctx, api.NewRouter(nil, "", a.log)) })
	g.Go(func() error { return a.sweep(gctx) })
	return g.Wait()
}

// RunWebhook registers the webhook and handles pushed updates until ctx ends.
func (a *App) RunWebhook(ctx context.Context) error {
	secret := a.cfg.HTTP.WebhookSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
		a.log.Info("WEBHOOK_SECRET not set, generated one for this run")
	}
	url := strings.TrimRight(a.cfg.HTTP.WebhookURL, "/") + "/webhook/" + secret
	if err := a.client.SetWebhook(url); err != nil {
		return err
	}
	a.log.Info("bot starting", zap.String("bot", "@"+a.client.Username()), zap.String("mode", "webhook"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.serve(gctx, api.NewRouter(a.router.Handle, secret, a.log.Named("http"))) })
	g.Go(func() error { return a.sweep(gctx) })
	return g.Wait()
}

func (a *App) Close(ctx context.Context) error {
	return a.store.Backend.Close(ctx)
}

func (a *App) serve(ctx context.Context, h http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *App) sweep(ctx context.Context) error {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.dialog.Sweep()
		}
	}
}
