// Command auctiond runs the auction lifecycle and bidding service.
//
// The service keeps at most one auction per chat channel, validates bids
// against rarity and market-value policy, persists every mutation to the
// configured store, and sweeps for expired and ending-soon auctions in
// the background.
//
// # Configuration File
//
// Create a YAML file with service settings:
//
//	listen_addr: ":8080"
//	metrics_addr: ":9090"
//	store:
//	  driver: postgres
//	  dsn: "host=localhost port=5432 user=auction dbname=auction sslmode=disable"
//	webhook_url: "http://gateway:8081/events"
//	directory_url: "http://gateway:8081"
//	catalog_path: "catalog.yaml"
//	sweep_interval: 30s
//	speed_channels: [123456789]
//
// # Usage
//
//	go run ./cmd/auctiond --config=auctiond.yaml
//	go run ./cmd/auctiond --addr=:8080 --catalog=catalog.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grandline/auctionhouse/api/httpserver"
	"github.com/grandline/auctionhouse/auction"
	"github.com/grandline/auctionhouse/config"
	"github.com/grandline/auctionhouse/market"
	"github.com/grandline/auctionhouse/notify"
	"github.com/grandline/auctionhouse/store"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", "", "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", "", "Metrics listen address")
		catalogPath   = flag.String("catalog", "", "Path to the market catalog YAML file")
		webhookURL    = flag.String("webhook-url", "", "Webhook endpoint for lifecycle events")
		directoryURL  = flag.String("directory-url", "", "Channel directory endpoint")
		sweepInterval = flag.Duration("sweep-interval", 0, "Interval between background sweeps")
		enablePprof   = flag.Bool("pprof", false, "Enable the pprof debugging API")
		testMode      = flag.Bool("test-mode", false, "Relax bid ownership checks for local testing")
		logJSON       = flag.Bool("log-json", false, "Log in JSON instead of text")
		logDebug      = flag.Bool("log-debug", false, "Log at debug level")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *addr, *metricsAddr, *catalogPath, *webhookURL,
		*directoryURL, *sweepInterval, *enablePprof, *testMode)

	log := newLogger(*logJSON, *logDebug)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service failed", "err", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.DefaultConfig(), nil
}

func applyFlagOverrides(cfg *config.Config, addr, metricsAddr, catalogPath,
	webhookURL, directoryURL string, sweepInterval time.Duration,
	enablePprof, testMode bool) {

	if addr != "" {
		cfg.ListenAddr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	if webhookURL != "" {
		cfg.WebhookURL = webhookURL
	}
	if directoryURL != "" {
		cfg.DirectoryURL = directoryURL
	}
	if sweepInterval != 0 {
		cfg.SweepInterval = sweepInterval
	}
	if enablePprof {
		cfg.EnablePprof = true
	}
	if testMode {
		cfg.TestMode = true
	}
}

func newLogger(jsonOutput, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, log *slog.Logger) error {
	db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	catalog := market.NewCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = market.LoadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		log.Info("market catalog loaded", "path", cfg.CatalogPath, "entries", catalog.Len())
	} else {
		log.Warn("no market catalog configured, every auction will be rejected for missing market data")
	}

	var notifier auction.Notifier = notify.NopNotifier{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL, log)
	}
	var directory auction.Directory = notify.StaticDirectory{}
	if cfg.DirectoryURL != "" {
		directory = notify.NewHTTPDirectory(cfg.DirectoryURL, log)
	}

	registry := auction.NewRegistry(db, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("loading auctions: %w", err)
	}

	guards := auction.NewGuardSet()
	speed := cfg.SpeedChannelSet()

	engine := auction.NewEngine(registry, guards, catalog, notifier, auction.EngineConfig{
		SpeedChannels: speed,
		TestMode:      cfg.TestMode,
		Log:           log,
	})
	sweeper := auction.NewSweeper(registry, guards, db, notifier, directory, auction.SweeperConfig{
		Interval:      cfg.SweepInterval,
		SpeedChannels: speed,
		Log:           log,
	})
	go sweeper.Run(ctx)

	handler := httpserver.NewAuctionHandler(engine, sweeper, log)
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            cfg.DrainDuration,
		GracefulShutdownDuration: cfg.GracefulShutdownDuration,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, handler)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	cancel()
	srv.Shutdown()
	return nil
}

func openStore(cfg *config.Config) (auction.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DSN != "" {
			return store.NewPostgresStoreFromDSN(cfg.Store.DSN)
		}
		return store.NewPostgresStore(&cfg.Store.Postgres)
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	case "memory", "":
		return auction.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
