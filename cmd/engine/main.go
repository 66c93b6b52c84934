// Package main runs the feature engine service: a periodic computation
// cycle over the token universe plus an optional live transfer stream
// that keeps the local transfer history warm between cycles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"token-feature-engine/internal/behavior"
	"token-feature-engine/internal/engine"
	"token-feature-engine/internal/feed"
	"token-feature-engine/internal/fusion"
	"token-feature-engine/internal/indicator"
	"token-feature-engine/internal/observability"
	"token-feature-engine/internal/registry"
	"token-feature-engine/internal/selector"
	"token-feature-engine/internal/storage"
	chstore "token-feature-engine/internal/storage/clickhouse"
	"token-feature-engine/internal/storage/memory"
	"token-feature-engine/internal/storage/migrations"
	pgstore "token-feature-engine/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	candles   storage.CandleStore
	transfers storage.TransferStore
	snapshots storage.SnapshotStore
	tokens    storage.TokenStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("TRANSFER_FEED_ENDPOINT"), "Transfer feed HTTP endpoint")
	streamEndpoint := flag.String("stream-endpoint", os.Getenv("TRANSFER_STREAM_ENDPOINT"), "Transfer feed WebSocket endpoint (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	budget := flag.Int("budget", selector.DefaultConfig().Budget, "Per-cycle token refresh budget")
	cycleInterval := flag.Duration("cycle-interval", engine.DefaultConfig().CycleInterval, "Computation cycle interval")
	registryTTL := flag.Duration("registry-ttl", 10*time.Minute, "Token universe cache TTL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	selCfg := selector.DefaultConfig()
	selCfg.Budget = *budget

	engCfg := engine.DefaultConfig()
	engCfg.CycleInterval = *cycleInterval

	universe := registry.NewCache(stores.tokens, *registryTTL)

	eng := engine.New(engCfg, engine.Options{
		Candles:    stores.candles,
		Transfers:  stores.transfers,
		Snapshots:  stores.snapshots,
		Tokens:     stores.tokens,
		Universe:   universe,
		Source:     feed.NewHTTPSource(*feedEndpoint, feed.WithLogger(log.New(os.Stdout, "[feed] ", log.LstdFlags))),
		Selector:   selector.NewSelector(selCfg),
		Indicators: indicator.NewCalculator(indicator.DefaultConfig()),
		Behavior:   behavior.NewCalculator(behavior.DefaultConfig()),
		Fuser:      fusion.NewFuser(fusion.DefaultConfig()),
		Metrics:    metrics,
		Logger:     logger,
	})

	started := time.Now()

	// Handle shutdown signals
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go startHTTPServer(*metricsAddr, logger, started)

	var wg sync.WaitGroup
	if *streamEndpoint != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runStream(ctx, *streamEndpoint, stores.transfers, universe, metrics, logger)
		}()
	}

	err = eng.Run(ctx)
	close(done)
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Engine error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			candles:   memory.NewCandleStore(),
			transfers: memory.NewTransferStore(),
			snapshots: memory.NewSnapshotStore(),
			tokens:    memory.NewTokenStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		candles:   pgstore.NewCandleStore(pool),
		transfers: pgstore.NewTransferStore(pool),
		tokens:    pgstore.NewTokenStore(pool),
		snapshots: chstore.NewSnapshotStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// runStream consumes the live transfer stream into the transfer store so
// the next cycle's first-appearance scans see events that arrived between
// feed polls. Stream failure degrades to poll-only operation.
func runStream(ctx context.Context, endpoint string, transfers storage.TransferStore, universe *registry.Cache, metrics *observability.Metrics, logger *log.Logger) {
	stream, err := feed.NewLiveStream(ctx, endpoint, logger, nil)
	if err != nil {
		logger.Printf("live stream unavailable, continuing poll-only: %v", err)
		return
	}
	defer stream.Close()

	uni, err := universe.Universe(ctx)
	if err != nil {
		logger.Printf("load universe for stream subscribe: %v", err)
		return
	}
	mints := make([]string, 0, uni.Len())
	for _, tok := range uni.Tokens() {
		mints = append(mints, tok.TokenID)
	}
	if len(mints) > 0 {
		if err := stream.Subscribe(mints...); err != nil {
			logger.Printf("stream subscribe: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			metrics.StreamEventsReceived.Inc()
			err := transfers.Append(ctx, ev)
			switch {
			case err == nil:
				metrics.StreamEventsStored.Inc()
			case errors.Is(err, storage.ErrDuplicateKey):
				// Already mirrored by a cycle fetch.
			default:
				logger.Printf("store stream event %s: %v", ev.Signature, err)
			}
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func startHTTPServer(addr string, logger *log.Logger, started time.Time) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Status string `json:"status"`
			Uptime string `json:"uptime"`
		}{
			Status: "running",
			Uptime: time.Since(started).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
