package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"certwatch/internal/api"
	"certwatch/internal/bot"
	"certwatch/internal/config"
	"certwatch/internal/monitor"
	"certwatch/pkg/ctlog/crtsh"
	"certwatch/pkg/logger"
	"certwatch/pkg/storage/jsonfile"
	"certwatch/pkg/telegram"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config) (*sdkmetric.MeterProvider, func(ctx context.Context)) {
	server, mp, err := api.NewServer(api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return mp, func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func watchCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Starts the monitoring loop, the Telegram bot and the operational server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			mp, stopWebserver := setupServer(ctx, cfg)

			store, err := jsonfile.New(cfg.Storage.Dir)
			if err != nil {
				logger.Fatal(ctx, "could not create storage", zap.Error(err))
			}

			// Domains with a stored entry survive restarts.
			seed, err := store.List(ctx)
			if err != nil {
				logger.Fatal(ctx, "could not list stored domains", zap.Error(err))
			}

			ctClient := crtsh.New(&http.Client{Timeout: cfg.CTLog.RequestTimeout}, crtsh.Options{
				BaseURL:   cfg.CTLog.BaseURL,
				UserAgent: cfg.CTLog.UserAgent,
			})

			// The poll HTTP timeout must exceed the long-poll wait, or every
			// empty getUpdates would error out.
			tgClient := telegram.New(&http.Client{Timeout: cfg.Telegram.PollTimeout + 10*time.Second}, telegram.Options{
				Token:       cfg.Telegram.Token,
				BaseURL:     cfg.Telegram.BaseURL,
				PollTimeout: cfg.Telegram.PollTimeout,
			})
			notifier := telegram.NewNotifier(tgClient, cfg.Telegram.AdminChatID)

			monOpts := monitor.NewOptions(cfg)
			monOpts.InitialDomains = seed
			mon, err := monitor.New(ctClient, store, notifier, mp.Meter("certwatch"), monOpts)
			if err != nil {
				logger.Fatal(ctx, "could not create monitor", zap.Error(err))
			}
			mon.Start(ctx)

			b := bot.New(tgClient, mon, bot.NewOptions(cfg))
			go func() {
				if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error(ctx, "bot loop failed", zap.Error(err))
				}
			}()

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			mon.Stop()
			if err := mon.Wait(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "monitor did not stop in time", zap.Error(err))
			}
			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
