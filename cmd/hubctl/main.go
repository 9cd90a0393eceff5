package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/knowledge-hub-tools/internal/adapters/cli"
	"github.com/kirillkom/knowledge-hub-tools/internal/bootstrap"
	"github.com/kirillkom/knowledge-hub-tools/internal/config"
	"github.com/kirillkom/knowledge-hub-tools/internal/observability/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg := config.Load()
	logger := logging.New("hubctl", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsAddr := ""
	if cfg.MetricsPort != "" {
		metricsAddr = net.JoinHostPort("", cfg.MetricsPort)
	}

	load := func(ctx context.Context) (*cli.Services, error) {
		app, err := bootstrap.New(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Coverage:    app.Coverage,
			Reconciler:  app.Reconciler,
			Images:      app.Images,
			UnitMirror:  app.UnitMirror,
			Conversion:  app.Conversion,
			Duplication: app.Duplication,
			Seeder:      app.Seeder,
			Diagnoser:   app.Diagnoser,

			Archive:    app.Storage,
			Exporter:   app.Exporter,
			Subscriber: app.Subscriber,
			Metrics:    app.Metrics,
			Logger:     logger,

			PushgatewayURL: cfg.PushgatewayURL,
			MetricsAddr:    metricsAddr,
			Close:          app.Close,
		}, nil
	}
	return cli.Execute(ctx, load, os.Args[1:], os.Stdout, os.Stderr)
}
