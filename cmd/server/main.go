// Package main runs the trade engine server: store wiring, strategy
// supervisor, notification relay and metrics endpoint in one binary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"solana-trade-engine/internal/config"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/gateway"
	gwstub "solana-trade-engine/internal/gateway/stub"
	"solana-trade-engine/internal/marketfeed"
	feedstub "solana-trade-engine/internal/marketfeed/stub"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/position"
	"solana-trade-engine/internal/pricetracker"
	"solana-trade-engine/internal/storage"
	chstore "solana-trade-engine/internal/storage/clickhouse"
	"solana-trade-engine/internal/storage/memory"
	"solana-trade-engine/internal/storage/migrations"
	pgstore "solana-trade-engine/internal/storage/postgres"
	"solana-trade-engine/internal/strategy"
	"solana-trade-engine/internal/supervisor"
)

// stores groups the persistence interfaces the server wires together.
type stores struct {
	wallets      storage.WalletStore
	strategies   storage.StrategyStore
	positions    storage.PositionStore
	transactions storage.TransactionStore
	records      storage.ExecutionRecordStore
}

func main() {
	// Missing .env is fine; system env vars still apply.
	_ = godotenv.Load()

	cfg := config.Load()

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	gatewayURL := flag.String("gateway-url", cfg.GatewayBaseURL, "Execution gateway base URL")
	gatewayKey := flag.String("gateway-key", cfg.GatewayAPIKey, "Execution gateway API key")
	feedURL := flag.String("feed-url", cfg.FeedBaseURL, "Market feed REST base URL")
	feedWS := flag.String("feed-ws", cfg.FeedWSEndpoint, "Market feed WebSocket endpoint")
	feedKey := flag.String("feed-key", cfg.FeedAPIKey, "Market feed API key")
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "API and notification relay HTTP address")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (trace|debug|info|warn|error)")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "Use stub gateway and market feed instead of live endpoints")
	snapshotSpec := flag.String("metrics-snapshot-cron", cfg.MetricsSnapshotSpec, "Cron spec for the periodic strategy metrics log (empty disables)")
	flag.Parse()

	log := newLogger(*logLevel)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if !*dryRun && (*gatewayURL == "" || *feedURL == "" || *feedWS == "") {
		log.Fatal().Msg("--gateway-url, --feed-url and --feed-ws are required (use --dry-run for stubs)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	var (
		gw   gateway.ExecutionGateway
		feed marketfeed.Feed
	)
	if *dryRun {
		log.Warn().Msg("dry-run mode: trades and prices come from stubs")
		gw = gwstub.NewGateway()
		feed = feedstub.NewFeed()
	} else {
		gw = gateway.NewClient(*gatewayURL, *gatewayKey)
		feed = marketfeed.NewClient(*feedURL, *feedWS, *feedKey, nil, log)
	}

	metrics := observability.NewMetrics("")
	hub := notify.NewHub(log)
	notifier := notify.Fanout{notify.NewLogNotifier(log), hub}

	limiter := executor.NewRateLimiter(cfg.MaxTradesPerWindow, 0)
	exec := executor.NewOrderExecutor(st.wallets, st.transactions, gw, limiter, metrics, log)
	manager := position.NewManager(st.positions, feed, notifier, metrics, log, position.Config{
		PriceCacheTTL:   cfg.PriceCacheTTL,
		RefreshInterval: cfg.RefreshInterval,
	})
	tracker := pricetracker.New(feed, metrics, log, cfg.PollInterval)

	deps := strategy.Deps{
		Executor:  exec,
		Positions: manager,
		Prices:    tracker,
		Feed:      feed,
		Notifier:  notifier,
		Records:   st.records,
		Metrics:   metrics,
		Log:       log,
	}
	sup := supervisor.New(st.strategies, st.transactions, st.positions, deps, metrics, log, cfg.StopWait)

	// The registry starts empty: strategies flagged active in the store
	// are NOT resumed automatically and must be restarted explicitly.
	if active, err := st.strategies.GetActive(ctx); err == nil && len(active) > 0 {
		log.Warn().Int("count", len(active)).Msg("active-flagged strategies found in store; not auto-resuming")
	}

	var snapshots *cron.Cron
	if *snapshotSpec != "" {
		snapshots = cron.New()
		if _, err := snapshots.AddFunc(*snapshotSpec, func() {
			logMetricsSnapshot(context.Background(), st.strategies, sup, log)
		}); err != nil {
			log.Fatal().Err(err).Str("spec", *snapshotSpec).Msg("invalid metrics snapshot cron spec")
		}
		snapshots.Start()
	}

	apiSrv := &http.Server{Addr: *listenAddr, Handler: newAPIMux(sup, hub)}
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: newMetricsMux()}

	go serveHTTP(apiSrv, "api", log)
	go serveHTTP(metricsSrv, "metrics", log)

	log.Info().
		Str("listen_addr", *listenAddr).
		Str("metrics_addr", *metricsAddr).
		Bool("dry_run", *dryRun).
		Bool("use_memory", *useMemory).
		Msg("trade engine started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if snapshots != nil {
		snapshots.Stop()
	}
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	sup.Shutdown(shutdownCtx)
	tracker.Shutdown()
	manager.Shutdown()
	hub.Close()

	log.Info().Msg("shutdown complete")
}

// newLogger builds the root console logger at the requested level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

// openStores connects the backing stores: postgres for the ledger,
// clickhouse for the append-only execution records, or all-memory.
func openStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		wallets := memory.NewWalletStore()
		return &stores{
			wallets:      wallets,
			strategies:   memory.NewStrategyStore(),
			positions:    memory.NewPositionStore(wallets),
			transactions: memory.NewTransactionStore(wallets),
			records:      memory.NewExecutionRecordStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		wallets:      pgstore.NewWalletStore(pool),
		strategies:   pgstore.NewStrategyStore(pool),
		positions:    pgstore.NewPositionStore(pool),
		transactions: pgstore.NewTransactionStore(pool),
		records:      chstore.NewExecutionRecordStore(conn),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// newAPIMux routes the control surface: strategy lifecycle, the
// notification relay and a health probe.
func newAPIMux(sup *supervisor.Supervisor, hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/ws", hub)
	mux.HandleFunc("POST /strategies/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		writeLifecycleResult(w, sup.Start(r.Context(), r.PathValue("id")))
	})
	mux.HandleFunc("POST /strategies/{id}/stop", func(w http.ResponseWriter, r *http.Request) {
		writeLifecycleResult(w, sup.Stop(r.Context(), r.PathValue("id")))
	})
	mux.HandleFunc("GET /strategies/{id}/metrics", func(w http.ResponseWriter, r *http.Request) {
		m, err := sup.Metrics(r.Context(), r.PathValue("id"))
		if err != nil {
			writeLifecycleResult(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	})
	return mux
}

// writeLifecycleResult maps supervisor errors onto HTTP statuses.
func writeLifecycleResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	case errors.Is(err, supervisor.ErrStrategyNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, supervisor.ErrAlreadyRunning), errors.Is(err, supervisor.ErrNotRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func serveHTTP(srv *http.Server, name string, log zerolog.Logger) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("server", name).Msg("http server failed")
	}
}

// logMetricsSnapshot logs aggregate metrics for every active-flagged
// strategy. Failures are logged per strategy and never stop the sweep.
func logMetricsSnapshot(ctx context.Context, strategies storage.StrategyStore, sup *supervisor.Supervisor, log zerolog.Logger) {
	active, err := strategies.GetActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("metrics snapshot: list active strategies")
		return
	}
	for _, s := range active {
		m, err := sup.Metrics(ctx, s.ID)
		if err != nil {
			log.Error().Err(err).Str("strategy_id", s.ID).Msg("metrics snapshot failed")
			continue
		}
		log.Info().
			Str("strategy_id", s.ID).
			Str("strategy_type", s.Config.Type).
			Int("total_trades", m.TotalTrades).
			Float64("win_rate", m.WinRate).
			Float64("realized_pnl", m.RealizedPnL).
			Float64("unrealized_pnl", m.UnrealizedPnL).
			Int("active_positions", m.ActivePositions).
			Msg("strategy metrics snapshot")
	}
}
