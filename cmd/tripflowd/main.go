// Command tripflowd runs the lead sync engine headlessly: it polls the
// remote lead book, maintains the local snapshot cache, replays queued
// writes, and raises notifications for the signed-in agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/connectivity"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/notify"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/outbox"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/session"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source/sheets"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/store"
	appsync "github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/sync"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	once := flag.Bool("once", false, "run a single sync cycle and exit")
	flag.Parse()

	if err := run(*configPath, *debug, *once); err != nil {
		fmt.Fprintln(os.Stderr, "tripflowd:", err)
		os.Exit(1)
	}
}

func run(configPath string, debug, once bool) error {
	log, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is not set in %s", configPath)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	st, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, "tripflow.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed, err := cfg.Notifications.SeedSettings()
	if err != nil {
		return err
	}
	if err := st.SeedNotificationSettings(ctx, seed); err != nil {
		return err
	}

	timeout := time.Duration(cfg.Provider.TimeoutSec) * time.Second

	tokens := sheets.NewTokenEndpoint(cfg.Provider.TokenURL, timeout)
	sessions := session.NewManager(session.NewKeyringStore(), tokens, log)
	defer sessions.Close()

	if err := seedSession(ctx, sessions, tokens, log); err != nil {
		return err
	}

	client := sheets.NewClient(cfg.Provider.BaseURL, sessions.AccessToken, timeout)
	remote := sheets.NewAdapter(client, cfg.Provider)

	ob := outbox.New(st, remote, cfg.Provider.SpreadsheetID, log)
	dispatcher := notify.NewDispatcher(st, notify.LogSink{Log: log}, log)

	interval := time.Duration(cfg.Sync.IntervalSec) * time.Second
	engine := appsync.New(st, remote, sessions, dispatcher, ob, interval, log)

	if once {
		report, err := engine.RunOnce(ctx, true)
		if err != nil {
			return err
		}
		log.Info("single sync cycle finished",
			zap.Int("leads", report.Leads),
			zap.Int("delivered", report.Delivered),
			zap.Int("replayed", report.Replayed))
		return nil
	}

	probeInterval := time.Duration(cfg.Sync.ProbeIntervalSec) * time.Second
	monitor := connectivity.NewMonitor(connectivity.HTTPProbe(cfg.Provider.BaseURL), probeInterval, log)
	monitor.OnOnline(func() { engine.Sync(false) })

	go monitor.Run(ctx)
	go watchEvents(ctx, engine, log)
	go watchSignals(ctx, engine)

	log.Info("tripflowd started",
		zap.String("config", configPath),
		zap.Duration("interval", interval))

	engine.Run(ctx)

	log.Info("tripflowd stopped")
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// seedSession exchanges TRIPFLOW_REFRESH_TOKEN for a session when no
// stored session exists yet. It is the sign-in path on headless hosts.
func seedSession(
	ctx context.Context,
	sessions *session.Manager,
	tokens *sheets.TokenEndpoint,
	log *zap.Logger,
) error {
	if sessions.CheckAuth() {
		return nil
	}
	refresh := os.Getenv("TRIPFLOW_REFRESH_TOKEN")
	if refresh == "" {
		return nil
	}

	pair, err := tokens.Refresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("signing in with TRIPFLOW_REFRESH_TOKEN: %w", err)
	}
	sessions.SetSession(pair)
	log.Info("session established from refresh token", zap.String("user", pair.UserID))
	return nil
}

// watchEvents logs engine transitions the cycle itself cannot report.
func watchEvents(ctx context.Context, engine *appsync.Orchestrator, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-engine.Events():
			switch ev.Kind {
			case appsync.EventSyncFailed:
				log.Warn("sync cycle failed",
					zap.String("state", string(ev.Status.State)),
					zap.Error(ev.Status.Err))
			case appsync.EventSynced:
				log.Debug("sync cycle event", zap.Time("last_sync", ev.Status.LastSync))
			}
		}
	}
}

// watchSignals forces a cache-bypassing refresh on SIGUSR1.
func watchSignals(ctx context.Context, engine *appsync.Orchestrator) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			engine.Sync(true)
		}
	}
}
