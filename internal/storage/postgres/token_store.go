package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(ctx context.Context, tok *domain.TokenInfo) error {
	if tok == nil || tok.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			token_id, symbol, name, decimals, verified, liquidity_usd,
			logo_uri, website, last_enriched_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		tok.TokenID, tok.Symbol, tok.Name, tok.Decimals, tok.Verified,
		tok.LiquidityUSD, tok.LogoURI, tok.Website, tok.LastEnrichedAt, tok.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its identifier.
func (s *TokenStore) GetByID(ctx context.Context, tokenID string) (*domain.TokenInfo, error) {
	query := selectTokenColumns + ` WHERE token_id = $1`

	tok, err := scanToken(s.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return tok, nil
}

// GetAll retrieves every registered token ordered by token_id.
func (s *TokenStore) GetAll(ctx context.Context) ([]*domain.TokenInfo, error) {
	query := selectTokenColumns + ` ORDER BY token_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TokenInfo
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, tok)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

// MarkEnriched records a successful enrichment timestamp for a token.
func (s *TokenStore) MarkEnriched(ctx context.Context, tokenID string, atMs int64) error {
	query := `UPDATE tokens SET last_enriched_at = $2 WHERE token_id = $1`

	tag, err := s.pool.Exec(ctx, query, tokenID, atMs)
	if err != nil {
		return fmt.Errorf("mark token enriched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const selectTokenColumns = `
	SELECT token_id, symbol, name, decimals, verified, liquidity_usd,
	       logo_uri, website, last_enriched_at, created_at
	FROM tokens
`

// scanToken scans a single row into a TokenInfo.
func scanToken(row pgx.Row) (*domain.TokenInfo, error) {
	var tok domain.TokenInfo
	err := row.Scan(
		&tok.TokenID, &tok.Symbol, &tok.Name, &tok.Decimals, &tok.Verified,
		&tok.LiquidityUSD, &tok.LogoURI, &tok.Website, &tok.LastEnrichedAt, &tok.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
