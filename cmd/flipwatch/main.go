// flipwatch watches tracked identities for contradictory statements and
// raises deduplicated alerts.
//
// It polls a post provider on a fixed schedule, runs the pairwise
// contradiction detector over each identity's recent statements, gates
// candidates through a cooldown window, and persists surviving alerts
// to SQLite before handing them to delivery.
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

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/abelbrown/flipwatch/internal/alert"
	"github.com/abelbrown/flipwatch/internal/config"
	"github.com/abelbrown/flipwatch/internal/deliver"
	"github.com/abelbrown/flipwatch/internal/detect"
	"github.com/abelbrown/flipwatch/internal/lexicon"
	"github.com/abelbrown/flipwatch/internal/logging"
	"github.com/abelbrown/flipwatch/internal/source"
	"github.com/abelbrown/flipwatch/internal/store"
	"github.com/abelbrown/flipwatch/internal/sweep"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.flipwatch/config.json)")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	dataDir, err := config.DataDir()
	if err != nil {
		fatal("Failed to resolve data directory: %v", err)
	}

	if err := logging.Init(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	path := *configPath
	if path == "" {
		path, err = config.ConfigPath()
		if err != nil {
			fatal("Failed to resolve config path: %v", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	if cfg.Source.Endpoint == "" {
		fatal("No post source endpoint configured (set source.endpoint or FLIPWATCH_SOURCE_ENDPOINT)")
	}
	if len(cfg.Identities) == 0 {
		fatal("No identities configured")
	}

	// Store open failure is the one fatal persistence condition: the
	// cooldown gate cannot be correct without durable history.
	dbPath := filepath.Join(dataDir, "flipwatch.db")
	st, err := store.Open(dbPath)
	if err != nil {
		fatal("Failed to open alert store: %v", err)
	}
	defer st.Close()
	logging.Info("Store initialized", "path", dbPath)

	registry := sweep.NewRegistry()
	for _, id := range cfg.Identities {
		registry.Add(id)
	}

	src := source.NewHTTPSource(
		cfg.Source.Endpoint,
		time.Duration(cfg.Source.TimeoutSeconds)*time.Second,
		cfg.Source.RequestsPerMinute,
	)

	var sink deliver.Sink = deliver.LogSink{}
	if cfg.Webhook.URL != "" {
		sink = deliver.NewWebhookSink(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second)
		logging.Info("Webhook delivery enabled", "url", cfg.Webhook.URL)
	}

	detector := detect.New(lexicon.Default())
	gate := alert.NewGate(st, time.Duration(cfg.Sweep.CooldownMinutes)*time.Minute)
	sweeper := sweep.New(registry, src, detector, gate, sink, st, sweep.Config{
		Workers:    cfg.Sweep.Workers,
		FetchLimit: cfg.Sweep.FetchLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runSweep := func() {
		result, err := sweeper.Run(ctx)
		if err != nil {
			logging.Warn("Sweep did not complete", "error", err)
			return
		}
		for identity, idErr := range result.Errors {
			logging.Warn("Identity failed", "identity", identity, "error", idErr)
		}
	}

	if *once {
		runSweep()
		return
	}

	// Scheduled sweeps; the sweeper itself rejects overlap if a sweep
	// overruns the interval.
	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dm", cfg.Sweep.IntervalMinutes)
	if _, err := scheduler.AddFunc(spec, runSweep); err != nil {
		fatal("Failed to schedule sweeps: %v", err)
	}
	scheduler.Start()
	logging.Info("Sweep scheduler started",
		"interval_minutes", cfg.Sweep.IntervalMinutes,
		"identities", len(cfg.Identities))

	// Initial sweep immediately, then on the schedule
	runSweep()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("Shutting down")
	cancel()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
