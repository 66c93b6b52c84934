package memory

import (
	"context"
	"sort"
	"sync"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferEvent // keyed by signature
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TransferEvent),
	}
}

// Append adds a new transfer event. Returns ErrDuplicateKey if signature exists.
func (s *TransferStore) Append(_ context.Context, e *domain.TransferEvent) error {
	if e == nil || e.Signature == "" || e.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.Signature] = &eventCopy
	return nil
}

// AppendBulk adds multiple events. Fails entire batch on any duplicate.
func (s *TransferStore) AppendBulk(_ context.Context, events []*domain.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Signature == "" || e.TokenID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.Signature] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[e.Signature] = &eventCopy
	}
	return nil
}

// GetByToken retrieves all events for a token since the given timestamp,
// ordered by timestamp ASC, signature ASC.
func (s *TransferStore) GetByToken(_ context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferEvent
	for _, e := range s.data {
		if e.TokenID == tokenID && e.TimestampMs >= sinceMs {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

// EarliestTimestamp returns the earliest transfer timestamp for a token.
func (s *TransferStore) EarliestTimestamp(_ context.Context, tokenID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	var earliest int64
	for _, e := range s.data {
		if e.TokenID != tokenID {
			continue
		}
		if !found || e.TimestampMs < earliest {
			earliest = e.TimestampMs
			found = true
		}
	}

	if !found {
		return 0, storage.ErrNotFound
	}
	return earliest, nil
}

var _ storage.TransferStore = (*TransferStore)(nil)
