package memory

import (
	"context"
	"sort"
	"sync"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenInfo // keyed by token_id
}

// NewTokenStore creates a new in-memory token registry store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenInfo),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TokenInfo) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := *t
	s.data[t.TokenID] = &tokenCopy
	return nil
}

// GetByID retrieves a token by its ID.
func (s *TokenStore) GetByID(_ context.Context, tokenID string) (*domain.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetAll retrieves all known tokens, ordered by token_id ASC.
func (s *TokenStore) GetAll(_ context.Context) ([]*domain.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenInfo, 0, len(s.data))
	for _, t := range s.data {
		tokenCopy := *t
		result = append(result, &tokenCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenID < result[j].TokenID
	})

	return result, nil
}

// MarkEnriched records the timestamp of the latest behavioral enrichment.
func (s *TokenStore) MarkEnriched(_ context.Context, tokenID string, atMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[tokenID]
	if !ok {
		return storage.ErrNotFound
	}

	at := atMs
	t.LastEnrichedAt = &at
	return nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
