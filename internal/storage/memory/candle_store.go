package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candle // keyed by (token_id, timeframe, timestamp_ms)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]*domain.Candle),
	}
}

// candleKey generates a unique key for a candle.
func candleKey(tokenID string, tf domain.Timeframe, timestampMs int64) string {
	return fmt.Sprintf("%s|%s|%d", tokenID, tf, timestampMs)
}

// Append adds a new candle. Returns ErrDuplicateKey if the identity exists.
func (s *CandleStore) Append(_ context.Context, c *domain.Candle) error {
	if c == nil || c.TokenID == "" || !c.Timeframe.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := candleKey(c.TokenID, c.Timeframe, c.TimestampMs)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	candleCopy := *c
	s.data[key] = &candleCopy
	return nil
}

// AppendBulk adds multiple candles. Fails entire batch on any duplicate.
func (s *CandleStore) AppendBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(candles))
	for _, c := range candles {
		if c == nil || c.TokenID == "" || !c.Timeframe.Valid() {
			return storage.ErrInvalidInput
		}
		key := candleKey(c.TokenID, c.Timeframe, c.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range candles {
		candleCopy := *c
		s.data[candleKey(c.TokenID, c.Timeframe, c.TimestampMs)] = &candleCopy
	}
	return nil
}

// GetCandles retrieves candles for (token, timeframe) within [from, to], ascending.
func (s *CandleStore) GetCandles(_ context.Context, tokenID string, tf domain.Timeframe, from, to int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.TokenID == tokenID && c.Timeframe == tf && c.TimestampMs >= from && c.TimestampMs <= to {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// EarliestTimestamp returns the earliest candle timestamp for a token.
func (s *CandleStore) EarliestTimestamp(_ context.Context, tokenID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	var earliest int64
	for _, c := range s.data {
		if c.TokenID != tokenID {
			continue
		}
		if !found || c.TimestampMs < earliest {
			earliest = c.TimestampMs
			found = true
		}
	}

	if !found {
		return 0, storage.ErrNotFound
	}
	return earliest, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
