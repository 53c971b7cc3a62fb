// Package main runs the ledger service:
// - HTTP API over the launchpad, staking and governance engines
// - Event journal to PostgreSQL/ClickHouse (or memory)
// - Websocket event feed and Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"meme-ledger/internal/amm"
	"meme-ledger/internal/api"
	"meme-ledger/internal/config"
	"meme-ledger/internal/deploy"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/events"
	"meme-ledger/internal/feed"
	"meme-ledger/internal/governance"
	"meme-ledger/internal/journal"
	"meme-ledger/internal/launchpad"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/observability"
	"meme-ledger/internal/staking"
	"meme-ledger/internal/storage"
	chstore "meme-ledger/internal/storage/clickhouse"
	"meme-ledger/internal/storage/memory"
	"meme-ledger/internal/storage/migrations"
	pgstore "meme-ledger/internal/storage/postgres"
	"meme-ledger/internal/token/memtoken"
)

var version = "dev"

// stores holds the journal backends.
type stores struct {
	events    storage.EventStore
	purchases storage.PurchaseStore // nil without ClickHouse in persistent mode
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Flags override the environment
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Separate Prometheus metrics address (empty: serve on http-addr)")
	flag.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "Deployment manifest (empty: dev manifest)")
	flag.BoolVar(&cfg.UseMemory, "use-memory", cfg.UseMemory, "Journal to memory instead of PostgreSQL/ClickHouse")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (optional)")
	flag.BoolVar(&cfg.SkipMigrations, "skip-migrations", cfg.SkipMigrations, "Do not apply schema migrations on startup")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := observability.NewLogger(observability.LoggerOptions{
		App:    "meme-ledger",
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(cfg.ShutdownTimeout + 5*time.Second):
			logger.Error().Dur("timeout", cfg.ShutdownTimeout).Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// run wires every component and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	manifest, err := loadManifest(cfg.ManifestPath)
	if err != nil {
		return err
	}
	fee, err := manifest.PlatformFee()
	if err != nil {
		return fmt.Errorf("platform fee: %w", err)
	}
	roles := manifest.Roles

	metrics := observability.NewMetrics("meme_ledger", prometheus.DefaultRegisterer)

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	startSeq, err := st.events.LatestSeq(ctx)
	if err != nil {
		return fmt.Errorf("latest event seq: %w", err)
	}

	bus := events.NewBus(logger)
	store, err := ledger.New(ledger.Options{
		Owner:    roles.Owner,
		Notifier: bus,
		StartSeq: startSeq,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := store.SetAccessGate(ctx, roles.Owner, roles.Gate); err != nil {
		return fmt.Errorf("install access gate: %w", err)
	}

	tokens := memtoken.NewRegistry(memtoken.Options{
		NativeName:    manifest.Network.NativeName,
		NativeSymbol:  manifest.Network.NativeSymbol,
		NativeMinters: []domain.Address{roles.Gate},
		Minters:       []domain.Address{roles.Gate},
	})

	lp, err := launchpad.New(launchpad.Options{
		Ledger:      store,
		Tokens:      tokens,
		Self:        roles.Gate,
		Treasury:    roles.Treasury,
		Admin:       roles.Admin,
		PlatformFee: fee,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	stk, err := staking.New(staking.Options{
		Ledger:  store,
		Tokens:  tokens,
		Self:    roles.Gate,
		Custody: roles.Custody,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	gov, err := governance.New(governance.Options{
		Ledger: store,
		Self:   roles.Gate,
		Admin:  roles.Admin,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if err := creditGenesis(ctx, manifest, lp, logger); err != nil {
		return err
	}

	jr, err := journal.New(journal.Options{
		Events:        st.events,
		Purchases:     st.purchases,
		Metrics:       metrics,
		QueueSize:     cfg.JournalQueueSize,
		BatchSize:     cfg.JournalBatchSize,
		FlushInterval: cfg.JournalFlushInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	hub := feed.NewHub(nil, metrics, logger)

	bus.Subscribe("journal", jr)
	bus.Subscribe("feed", hub)
	bus.Subscribe("metrics", metrics)

	var router amm.Router
	if manifest.AMM.Endpoint != "" {
		router = amm.NewHTTPClient(manifest.AMM.Endpoint, manifest.AMM.Router, manifest.AMM.Factory)
		logger.Info().Str("endpoint", manifest.AMM.Endpoint).Msg("amm router configured")
	}

	srv, err := api.New(api.Options{
		Launchpad:  lp,
		Staking:    stk,
		Governance: gov,
		Events:     st.events,
		Purchases:  st.purchases,
		Router:     router,
		Feed:       hub,
		Ledger:     store,
		Metrics:    metrics,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{{Addr: cfg.HTTPAddr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	// Create error channel for goroutines
	errCh := make(chan error, len(servers))

	var wg sync.WaitGroup
	journalCtx, stopJournal := context.WithCancel(context.WithoutCancel(ctx))
	wg.Add(1)
	go func() {
		defer wg.Done()
		jr.Run(journalCtx)
	}()

	for _, hs := range servers {
		go func(hs *http.Server) {
			logger.Info().Str("addr", hs.Addr).Msg("starting http server")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server %s: %w", hs.Addr, err)
			}
		}(hs)
	}

	logger.Info().
		Str("owner", roles.Owner.String()).
		Str("gate", roles.Gate.String()).
		Str("admin", roles.Admin.String()).
		Uint64("start_seq", startSeq).
		Bool("memory", cfg.UseMemory).
		Msg("ledger ready")

	// Wait for context cancellation or error
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.Close()
	for _, hs := range servers {
		if err := hs.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Str("addr", hs.Addr).Msg("http shutdown")
		}
	}

	// The journal drains its queue once stopped; no new events arrive
	// after the HTTP servers are down.
	stopJournal()
	wg.Wait()
	logger.Info().
		Uint64("written", jr.Written()).
		Uint64("dropped", jr.Dropped()).
		Msg("journal stopped")

	return runErr
}

// loadManifest reads the deployment manifest, or the dev one without a path.
func loadManifest(path string) (*deploy.Manifest, error) {
	if path == "" {
		return deploy.Dev()
	}
	m, err := deploy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return m, nil
}

// creditGenesis mints the manifest's genesis balances, in address order.
func creditGenesis(ctx context.Context, m *deploy.Manifest, lp *launchpad.Controller, logger zerolog.Logger) error {
	credits, err := m.GenesisCredits()
	if err != nil {
		return fmt.Errorf("genesis credits: %w", err)
	}

	addrs := make([]domain.Address, 0, len(credits))
	for a := range credits {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, a := range addrs {
		if err := lp.CreditNative(ctx, m.Roles.Admin, a, credits[a]); err != nil {
			return fmt.Errorf("genesis credit %s: %w", a, err)
		}
		logger.Debug().Str("address", a.String()).Str("amount", credits[a].String()).Msg("genesis credit")
	}
	return nil
}

// createStores creates the journal stores. The cleanup func closes them.
func createStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		return &stores{
			events:    memory.NewEventStore(),
			purchases: memory.NewPurchaseStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if !cfg.SkipMigrations {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info().Int("applied", applied).Msg("postgres migrations done")
	}
	st := &stores{events: pgstore.NewEventStore(pool)}

	if cfg.ClickhouseDSN == "" {
		logger.Warn().Msg("no clickhouse dsn, purchase analytics disabled")
		return st, pool.Close, nil
	}

	// ClickHouse
	var conn *chstore.Conn
	if cfg.SkipMigrations {
		conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	} else {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	st.purchases = chstore.NewPurchaseStore(conn)

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(value))
		}
	}
}
