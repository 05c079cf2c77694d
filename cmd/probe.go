package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"certwatch/internal/config"
	"certwatch/internal/monitor"
	"certwatch/pkg/ctlog/crtsh"
	"certwatch/pkg/logger"
	"certwatch/pkg/notify"
	"certwatch/pkg/storage/jsonfile"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// stdoutNotifier prints notifications instead of sending them to a chat, so
// a one-shot probe from a terminal needs no Telegram credentials.
type stdoutNotifier struct{}

func (stdoutNotifier) Send(_ context.Context, text string) error {
	fmt.Println(text)

	return nil
}

var _ notify.Notifier = stdoutNotifier{}

func probeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <domain>",
		Short: "Scans a single domain once and prints the result",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			store, err := jsonfile.New(cfg.Storage.Dir)
			if err != nil {
				logger.Fatal(ctx, "could not create storage", zap.Error(err))
			}

			ctClient := crtsh.New(&http.Client{Timeout: cfg.CTLog.RequestTimeout}, crtsh.Options{
				BaseURL:   cfg.CTLog.BaseURL,
				UserAgent: cfg.CTLog.UserAgent,
			})

			mon, err := monitor.New(ctClient, store, stdoutNotifier{},
				noop.NewMeterProvider().Meter("certwatch"), monitor.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not create monitor", zap.Error(err))
			}

			res, newSubdomains, err := mon.Probe(ctx, args[0])
			if err != nil {
				logger.Error(ctx, "probe failed", zap.Error(err))
				os.Exit(1)
			}

			fmt.Printf("scanned %s: %d subdomains known, %d new\n",
				res.Domain, res.Subdomains.Len(), len(newSubdomains))
			for _, sub := range res.Subdomains.Sorted() {
				fmt.Println(sub)
			}
		},
	}

	return cmd
}
