package storage

import (
	"context"

	"token-feature-engine/internal/domain"
)

// CandleStore provides access to candles storage.
type CandleStore interface {
	// Append adds a new candle. Returns ErrDuplicateKey if
	// (token_id, timeframe, timestamp_ms) exists.
	Append(ctx context.Context, c *domain.Candle) error

	// AppendBulk adds multiple candles atomically. Fails entire batch on any duplicate.
	AppendBulk(ctx context.Context, candles []*domain.Candle) error

	// GetCandles retrieves candles for (token, timeframe) within [from, to]
	// (inclusive, ms), ordered by timestamp ASC. Gaps are permitted: missing
	// bars do not fail the query.
	GetCandles(ctx context.Context, tokenID string, tf domain.Timeframe, from, to int64) ([]*domain.Candle, error)

	// EarliestTimestamp returns the earliest candle timestamp for a token
	// across all timeframes. Returns ErrNotFound if the token has no candles.
	EarliestTimestamp(ctx context.Context, tokenID string) (int64, error)
}

// TransferStore provides access to transfer_events storage.
type TransferStore interface {
	// Append adds a new transfer event. Returns ErrDuplicateKey if signature exists.
	Append(ctx context.Context, e *domain.TransferEvent) error

	// AppendBulk adds multiple events atomically. Fails entire batch on any duplicate.
	AppendBulk(ctx context.Context, events []*domain.TransferEvent) error

	// GetByToken retrieves all events for a token since the given timestamp
	// (inclusive, ms), ordered by timestamp ASC, signature ASC.
	GetByToken(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error)

	// EarliestTimestamp returns the earliest transfer timestamp for a token.
	// Returns ErrNotFound if the token has no transfers.
	EarliestTimestamp(ctx context.Context, tokenID string) (int64, error)
}

// SnapshotStore provides access to token_feature_snapshots storage.
type SnapshotStore interface {
	// Append adds a new snapshot. Returns ErrDuplicateKey if
	// (token_id, timeframe, timestamp_ms) exists. Duplicate appends are
	// idempotent at the snapshot-identity level; callers must not treat
	// the error as fatal.
	Append(ctx context.Context, s *domain.TokenFeatureSnapshot) error

	// Latest returns the max-timestamp snapshot for (token, timeframe).
	// Ties on timestamp are broken by ingestion order, most recent wins.
	// Returns ErrNotFound if none exists.
	Latest(ctx context.Context, tokenID string, tf domain.Timeframe) (*domain.TokenFeatureSnapshot, error)

	// LatestAll returns the latest snapshot per token for a timeframe,
	// ordered by token_id ASC.
	LatestAll(ctx context.Context, tf domain.Timeframe) ([]*domain.TokenFeatureSnapshot, error)

	// GetByTimeRange retrieves snapshots for (token, timeframe) within
	// [start, end] (inclusive, ms), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, tokenID string, tf domain.Timeframe, start, end int64) ([]*domain.TokenFeatureSnapshot, error)
}

// TokenStore provides access to the token registry.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, t *domain.TokenInfo) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID string) (*domain.TokenInfo, error)

	// GetAll retrieves all known tokens, ordered by token_id ASC.
	GetAll(ctx context.Context) ([]*domain.TokenInfo, error)

	// MarkEnriched records the timestamp of the latest behavioral enrichment.
	// This is scheduling bookkeeping, not feature data; it is the only
	// mutable column in the registry.
	MarkEnriched(ctx context.Context, tokenID string, atMs int64) error
}
