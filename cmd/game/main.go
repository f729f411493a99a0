package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Territory-Sense/internal/config"
	"github.com/Garsondee/Territory-Sense/internal/game"
	"github.com/Garsondee/Territory-Sense/internal/observer"
)

func main() {
	var cfgPath string
	var seed int64
	var observe string

	flag.StringVar(&cfgPath, "config", "", "YAML settings file (defaults when empty)")
	flag.Int64Var(&seed, "seed", 0, "RNG seed (0 keeps the config seed)")
	flag.StringVar(&observe, "observe", "", "serve snapshots on this address, e.g. :8080")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(cfgPath, seed, observe, logger); err != nil {
		logger.Error("territory", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath string, seed int64, observe string, logger *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if observe != "" {
		cfg.Observer.Addr = observe
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var hub *observer.Hub
	if cfg.Observer.Addr != "" {
		hub = observer.NewHub(logger.With("component", "observer"))
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Observer.Addr); err != nil {
				logger.Error("observer stopped", "err", err)
			}
		}()
		logger.Info("observer listening", "addr", cfg.Observer.Addr)
	}

	g, err := game.New(game.Options{
		Settings:     settings,
		Seed:         cfg.Seed,
		Elapsed:      cfg.Elapsed,
		Hub:          hub,
		PublishEvery: cfg.Observer.PublishEvery,
		ReportEvery:  cfg.Telemetry.ReportEvery,
		ReportWindow: cfg.Telemetry.Window,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	logger.Info("world ready", "seed", cfg.Seed, "teams", settings.NumTeams, "workers", g.World().Workers())

	ebiten.SetWindowTitle("Territory Sense")
	ebiten.SetWindowSize(g.WindowSize())
	return ebiten.RunGame(g)
}
