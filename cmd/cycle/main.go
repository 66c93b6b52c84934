// Package main runs exactly one feature computation cycle and exits.
// Useful for cron-driven deployments and for verifying configuration
// before starting the long-running service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"token-feature-engine/internal/behavior"
	"token-feature-engine/internal/domain"
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

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	feedEndpoint := flag.String("feed-endpoint", os.Getenv("TRANSFER_FEED_ENDPOINT"), "Transfer feed HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	budget := flag.Int("budget", selector.DefaultConfig().Budget, "Per-cycle token refresh budget")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall cycle timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[cycle] ", log.LstdFlags|log.Lshortfile)

	if *feedEndpoint == "" && !*useMemory {
		logger.Fatal("--feed-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for a dry run)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		candles   storage.CandleStore
		transfers storage.TransferStore
		snapshots storage.SnapshotStore
		tokens    storage.TokenStore
	)

	if *useMemory {
		candles = memory.NewCandleStore()
		transfers = memory.NewTransferStore()
		snapshots = memory.NewSnapshotStore()
		tokens = memory.NewTokenStore()
		if err := seedFixtures(ctx, tokens, candles, transfers); err != nil {
			logger.Fatalf("seed fixtures: %v", err)
		}
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}

		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer chConn.Close()

		candles = pgstore.NewCandleStore(pool)
		transfers = pgstore.NewTransferStore(pool)
		tokens = pgstore.NewTokenStore(pool)
		snapshots = chstore.NewSnapshotStore(chConn)
	}

	selCfg := selector.DefaultConfig()
	selCfg.Budget = *budget

	var source feed.TransferSource
	if *feedEndpoint != "" {
		source = feed.NewHTTPSource(*feedEndpoint, feed.WithLogger(log.New(os.Stdout, "[feed] ", log.LstdFlags)))
	} else {
		// Dry run: serve the seeded transfer history back as the feed.
		source = storeSource{transfers}
	}

	eng := engine.New(engine.DefaultConfig(), engine.Options{
		Candles:    candles,
		Transfers:  transfers,
		Snapshots:  snapshots,
		Tokens:     tokens,
		Universe:   registry.NewCache(tokens, time.Minute),
		Source:     source,
		Selector:   selector.NewSelector(selCfg),
		Indicators: indicator.NewCalculator(indicator.DefaultConfig()),
		Behavior:   behavior.NewCalculator(behavior.DefaultConfig()),
		Fuser:      fusion.NewFuser(fusion.DefaultConfig()),
		Metrics:    observability.NewMetrics(""),
		Logger:     logger,
	})

	start := time.Now()
	stats, err := eng.RunCycle(ctx)
	if err != nil {
		logger.Fatalf("cycle failed: %v", err)
	}

	out, _ := json.Marshal(struct {
		engine.CycleStats
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}{stats, time.Since(start).Seconds()})
	fmt.Println(string(out))
}

// storeSource serves transfers straight from the local store, standing in
// for the upstream feed during dry runs.
type storeSource struct {
	transfers storage.TransferStore
}

func (s storeSource) GetTransfers(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error) {
	return s.transfers.GetByToken(ctx, tokenID, sinceMs)
}

// seedFixtures loads a small synthetic universe: one active token with a
// full candle and transfer history and one bare token that exercises the
// fallback path.
func seedFixtures(ctx context.Context, tokens storage.TokenStore, candles storage.CandleStore, transfers storage.TransferStore) error {
	nowMs := time.Now().UnixMilli()

	symbol := "DEMO"
	name := "Demo Token"
	if err := tokens.Insert(ctx, &domain.TokenInfo{
		TokenID:      "DemoActiveMint11111111111111111111111111111",
		Symbol:       &symbol,
		Name:         &name,
		Decimals:     9,
		Verified:     true,
		LiquidityUSD: 250000,
		CreatedAt:    nowMs,
	}); err != nil {
		return err
	}
	if err := tokens.Insert(ctx, &domain.TokenInfo{
		TokenID:   "DemoBareMint1111111111111111111111111111111",
		Decimals:  9,
		CreatedAt: nowMs,
	}); err != nil {
		return err
	}

	hourMs := int64(3600000)
	bars := make([]*domain.Candle, 0, 48)
	for i := 48; i > 0; i-- {
		price := 10 + 0.05*float64(48-i)
		vol := 50000.0
		if i <= 4 {
			vol = 150000 // recent volume spike
		}
		bars = append(bars, &domain.Candle{
			TokenID:     "DemoActiveMint11111111111111111111111111111",
			Timeframe:   domain.Timeframe1h,
			TimestampMs: nowMs - int64(i)*hourMs,
			Open:        price,
			High:        price * 1.02,
			Low:         price * 0.98,
			Close:       price,
			Volume:      vol,
		})
	}
	if err := candles.AppendBulk(ctx, bars); err != nil {
		return err
	}

	events := []*domain.TransferEvent{
		{
			Signature:      "demoSig1",
			TokenID:        "DemoActiveMint11111111111111111111111111111",
			TimestampMs:    nowMs - 3*hourMs,
			AmountToken:    1200,
			AmountUSD:      15000,
			SourceWallet:   "demoWalletA",
			DestWallet:     "demoWalletB",
			Classification: domain.TransferBuy,
		},
		{
			Signature:      "demoSig2",
			TokenID:        "DemoActiveMint11111111111111111111111111111",
			TimestampMs:    nowMs - 2*hourMs,
			AmountToken:    400,
			AmountUSD:      4500,
			SourceWallet:   "demoWalletC",
			DestWallet:     "demoWalletD",
			Classification: domain.TransferBuy,
		},
	}
	return transfers.AppendBulk(ctx, events)
}
