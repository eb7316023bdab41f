package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"portfolio-trader-go/config"
	"portfolio-trader-go/gateway"
	"portfolio-trader-go/infrastructure/logger"
	"portfolio-trader-go/internal/engine"
	"portfolio-trader-go/market"
	"portfolio-trader-go/monitor"
	"portfolio-trader-go/order"
	"portfolio-trader-go/sim"
	"portfolio-trader-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	dryRun := flag.Bool("dryRun", false, "trade against the in-process sim venue")
	metricsAddr := flag.String("metricsAddr", "", "override metrics listen address")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Close()

	metrics := monitor.New()
	metrics.Serve(cfg.MetricsAddr)

	venue, cleanup, err := buildVenue(cfg, *dryRun, zlog)
	if err != nil {
		zlog.Fatal("init venue", zap.Error(err))
	}
	defer cleanup()

	ctrl, err := engine.New(engineConfig(cfg), engine.Components{
		Venue:   venue,
		Logger:  zlog,
		Metrics: metrics,
	})
	if err != nil {
		zlog.Fatal("init controller", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatcher(ctx, *cfgPath, ctrl, zlog)

	if err := ctrl.Start(); err != nil {
		zlog.Fatal("start controller", zap.Error(err))
	}
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		zlog.Warn("sd_notify", zap.Error(err))
	} else if sent {
		go keepAlive(ctx, zlog)
	}
	zlog.Info("runner up",
		zap.String("env", cfg.Env),
		zap.Bool("dryRun", *dryRun),
		zap.String("metricsAddr", cfg.MetricsAddr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		zlog.Info("signal received", zap.String("signal", sig.String()))
	case <-ctrl.Done():
		zlog.Info("controller finished")
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	ctrl.Stop()
}

// buildVenue connects the websocket feed, or in dry-run mode stands up
// the sim venue with a demo session.
func buildVenue(cfg config.AppConfig, dryRun bool, zlog *logger.Logger) (gateway.Venue, func(), error) {
	if !dryRun {
		feed, err := gateway.Dial(cfg.Venue.URL, zlog)
		if err != nil {
			return nil, nil, err
		}
		return feed, func() { _ = feed.Close() }, nil
	}

	simVenue, err := sim.New(sim.Config{
		Securities:   demoSecurities(),
		InitialCash:  200000,
		InitialUnits: 10,
		AckLatency:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}
	simVenue.Open()
	// A few background quotes so both strategies have something to see.
	simVenue.Seed("BOND.A", order.SideSell, 520, 2)
	simVenue.Seed("BOND.A", order.SideBuy, 470, 2)
	simVenue.Seed("BOND.B", order.SideSell, 540, 1)
	sessionEnd := time.Duration(cfg.Session.Minutes * float64(time.Minute))
	timer := time.AfterFunc(sessionEnd, simVenue.EndSession)
	cleanup := func() {
		timer.Stop()
		_ = simVenue.Close()
	}
	return simVenue, cleanup, nil
}

func demoSecurities() []market.Security {
	sec := func(id string, payoffs []int64) market.Security {
		return market.Security{
			ID:        id,
			PriceTick: 1, MinPrice: 1, MaxPrice: 100000,
			UnitTick: 1, MinUnits: 1, MaxUnits: 1000,
			Payoffs: payoffs,
		}
	}
	return []market.Security{
		sec("BOND.A", []int64{300, 500, 700}),
		sec("BOND.B", []int64{700, 500, 300}),
		sec("NOTE.C", []int64{500, 500, 500}),
	}
}

func engineConfig(cfg config.AppConfig) engine.Config {
	return engine.Config{
		RiskPenalty: cfg.Strategy.RiskPenalty,
		Phases: strategy.Phases{
			SessionMinutes: cfg.Session.Minutes,
			PhaseFraction:  cfg.Session.PhaseFraction,
			WarmupMinutes:  cfg.Session.WarmupSeconds / 60,
		},
		MaxMarginCents:   cfg.Strategy.MaxMarginCents,
		StaleDepth:       cfg.Strategy.StaleDepth,
		MMInterval:       time.Duration(cfg.Strategy.MMIntervalSeconds) * time.Second,
		ReactiveInterval: time.Duration(cfg.Strategy.ReactiveIntervalSeconds) * time.Second,
		WatchdogInterval: time.Duration(cfg.Strategy.WatchdogIntervalSeconds) * time.Second,
		SubmitPace:       time.Duration(cfg.Strategy.SubmitPaceMs) * time.Millisecond,
		Replenish: engine.ReplenishRule{
			Enabled:        cfg.Replenish.Enabled,
			CashFloorCents: cfg.Replenish.CashFloorCents,
			MinUnitsHeld:   cfg.Replenish.MinUnitsHeld,
			PriceCents:     cfg.Replenish.PriceCents,
			Units:          cfg.Replenish.Units,
		},
	}
}

// startWatcher hot-reloads strategy parameters on config file changes.
func startWatcher(ctx context.Context, path string, ctrl *engine.Controller, zlog *logger.Logger) {
	watcher, err := config.NewWatcher(path, 2*time.Second)
	if err != nil {
		zlog.Warn("config watcher disabled", zap.Error(err))
		return
	}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			ctrl.Reconfigure(engineConfig(next))
		})
		if err != nil && ctx.Err() == nil {
			zlog.Warn("config watcher stopped", zap.Error(err))
		}
	}()
}

// keepAlive feeds the systemd watchdog, when one is armed.
func keepAlive(ctx context.Context, zlog *logger.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	zlog.Info("systemd watchdog armed", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
