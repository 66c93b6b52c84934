package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const insertTransferQuery = `
	INSERT INTO transfer_events (
		signature, token_id, timestamp_ms, amount_token, amount_usd,
		source_wallet, dest_wallet, classification
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Append adds a new transfer event. Returns ErrDuplicateKey if the
// signature exists.
func (s *TransferStore) Append(ctx context.Context, tr *domain.TransferEvent) error {
	if tr == nil || tr.Signature == "" || tr.TokenID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTransferQuery,
		tr.Signature, tr.TokenID, tr.TimestampMs, tr.AmountToken, tr.AmountUSD,
		tr.SourceWallet, tr.DestWallet, tr.Classification,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// AppendBulk adds multiple transfer events atomically. Fails entire batch
// on any duplicate signature.
func (s *TransferStore) AppendBulk(ctx context.Context, transfers []*domain.TransferEvent) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, tr := range transfers {
		if tr == nil || tr.Signature == "" || tr.TokenID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTransferQuery,
			tr.Signature, tr.TokenID, tr.TimestampMs, tr.AmountToken, tr.AmountUSD,
			tr.SourceWallet, tr.DestWallet, tr.Classification,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByToken retrieves transfer events for a token with timestamp >=
// sinceMs, ordered by timestamp ASC then signature for determinism.
func (s *TransferStore) GetByToken(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT signature, token_id, timestamp_ms, amount_token, amount_usd,
		       source_wallet, dest_wallet, classification
		FROM transfer_events
		WHERE token_id = $1 AND timestamp_ms >= $2
		ORDER BY timestamp_ms ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("get transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// EarliestTimestamp returns the earliest transfer timestamp for a token.
func (s *TransferStore) EarliestTimestamp(ctx context.Context, tokenID string) (int64, error) {
	query := `
		SELECT timestamp_ms FROM transfer_events
		WHERE token_id = $1
		ORDER BY timestamp_ms ASC
		LIMIT 1
	`

	var ts int64
	if err := s.pool.QueryRow(ctx, query, tokenID).Scan(&ts); err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("earliest transfer timestamp: %w", err)
	}
	return ts, nil
}

// scanTransfers scans multiple rows into a slice of TransferEvent.
func scanTransfers(rows pgx.Rows) ([]*domain.TransferEvent, error) {
	var transfers []*domain.TransferEvent

	for rows.Next() {
		var tr domain.TransferEvent
		err := rows.Scan(
			&tr.Signature, &tr.TokenID, &tr.TimestampMs, &tr.AmountToken,
			&tr.AmountUSD, &tr.SourceWallet, &tr.DestWallet, &tr.Classification,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, &tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return transfers, nil
}
