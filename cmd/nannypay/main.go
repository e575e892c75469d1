package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nannypay/internal/config"
	"nannypay/internal/ics"
	appLog "nannypay/internal/log"
	"nannypay/internal/report"
)

const defaultConfigPath = "/etc/nannypay/config.yaml"

func main() {
	ctx, cancel := signalContext()
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg *config.Config
	loc *time.Location
	svc *report.Service
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	loc := cfg.Location()
	fetcher := ics.NewFetcher(cfg.CacheDir, &http.Client{Timeout: 30 * time.Second})
	provider := ics.NewFeedProvider(fetcher, sourcesFromConfig(cfg), loc)

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"ics_count", len(cfg.ICS),
		"export_dir", cfg.Export.Dir,
		"export_schedule", cfg.Export.Schedule,
	)

	return &app{
		cfg: cfg,
		loc: loc,
		svc: report.NewService(provider, loc, cfg.Rates, cfg.Allowances),
	}, nil
}

func sourcesFromConfig(cfg *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.ID, URL: c.URL})
	}
	return sources
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
