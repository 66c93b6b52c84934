package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL.
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

const insertCandleQuery = `
	INSERT INTO candles (
		token_id, timeframe, timestamp_ms, open, high, low, close, volume
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Append adds a new candle. Returns ErrDuplicateKey if
// (token_id, timeframe, timestamp_ms) exists.
func (s *CandleStore) Append(ctx context.Context, c *domain.Candle) error {
	if c == nil || c.TokenID == "" || !c.Timeframe.Valid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertCandleQuery,
		c.TokenID, c.Timeframe, c.TimestampMs,
		c.Open, c.High, c.Low, c.Close, c.Volume,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candle: %w", err)
	}
	return nil
}

// AppendBulk adds multiple candles atomically. Fails entire batch on any
// duplicate.
func (s *CandleStore) AppendBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range candles {
		if c == nil || c.TokenID == "" || !c.Timeframe.Valid() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertCandleQuery,
			c.TokenID, c.Timeframe, c.TimestampMs,
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert candle in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetCandles retrieves candles for (token, timeframe) within [from, to],
// ordered by timestamp ASC. Gaps are permitted.
func (s *CandleStore) GetCandles(ctx context.Context, tokenID string, tf domain.Timeframe, from, to int64) ([]*domain.Candle, error) {
	query := `
		SELECT token_id, timeframe, timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE token_id = $1 AND timeframe = $2 AND timestamp_ms >= $3 AND timestamp_ms <= $4
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, tf, from, to)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// EarliestTimestamp returns the earliest candle timestamp for a token
// across all timeframes.
func (s *CandleStore) EarliestTimestamp(ctx context.Context, tokenID string) (int64, error) {
	query := `
		SELECT timestamp_ms FROM candles
		WHERE token_id = $1
		ORDER BY timestamp_ms ASC
		LIMIT 1
	`

	var ts int64
	if err := s.pool.QueryRow(ctx, query, tokenID).Scan(&ts); err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("earliest candle timestamp: %w", err)
	}
	return ts, nil
}

// scanCandles scans multiple rows into a slice of Candle.
func scanCandles(rows pgx.Rows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		err := rows.Scan(
			&c.TokenID, &c.Timeframe, &c.TimestampMs,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}
