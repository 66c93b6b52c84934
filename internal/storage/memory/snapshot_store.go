package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// snapshotRecord pairs a snapshot with its insertion sequence number,
// used to break timestamp ties in the latest projection.
type snapshotRecord struct {
	snap *domain.TokenFeatureSnapshot
	seq  uint64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*snapshotRecord // keyed by (token_id, timeframe, timestamp_ms)
	seq  uint64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*snapshotRecord),
	}
}

// snapshotKey generates a unique key for a snapshot.
func snapshotKey(tokenID string, tf domain.Timeframe, timestampMs int64) string {
	return fmt.Sprintf("%s|%s|%d", tokenID, tf, timestampMs)
}

// Append adds a new snapshot. Returns ErrDuplicateKey if the identity exists.
func (s *SnapshotStore) Append(_ context.Context, snap *domain.TokenFeatureSnapshot) error {
	if snap == nil || snap.TokenID == "" || !snap.Timeframe.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.TokenID, snap.Timeframe, snap.TimestampMs)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.seq++
	snapCopy := *snap
	s.data[key] = &snapshotRecord{snap: &snapCopy, seq: s.seq}
	return nil
}

// Latest returns the max-timestamp snapshot for (token, timeframe).
func (s *SnapshotStore) Latest(_ context.Context, tokenID string, tf domain.Timeframe) (*domain.TokenFeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := s.latestLocked(tokenID, tf)
	if best == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *best.snap
	return &snapCopy, nil
}

// latestLocked finds the latest record for (token, timeframe); caller holds the lock.
func (s *SnapshotStore) latestLocked(tokenID string, tf domain.Timeframe) *snapshotRecord {
	var best *snapshotRecord
	for _, rec := range s.data {
		if rec.snap.TokenID != tokenID || rec.snap.Timeframe != tf {
			continue
		}
		if best == nil ||
			rec.snap.TimestampMs > best.snap.TimestampMs ||
			(rec.snap.TimestampMs == best.snap.TimestampMs && rec.seq > best.seq) {
			best = rec
		}
	}
	return best
}

// LatestAll returns the latest snapshot per token for a timeframe, ordered by token_id ASC.
func (s *SnapshotStore) LatestAll(_ context.Context, tf domain.Timeframe) ([]*domain.TokenFeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make(map[string]struct{})
	for _, rec := range s.data {
		if rec.snap.Timeframe == tf {
			tokens[rec.snap.TokenID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]*domain.TokenFeatureSnapshot, 0, len(ids))
	for _, id := range ids {
		if rec := s.latestLocked(id, tf); rec != nil {
			snapCopy := *rec.snap
			result = append(result, &snapCopy)
		}
	}
	return result, nil
}

// GetByTimeRange retrieves snapshots for (token, timeframe) within [start, end], ascending.
func (s *SnapshotStore) GetByTimeRange(_ context.Context, tokenID string, tf domain.Timeframe, start, end int64) ([]*domain.TokenFeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenFeatureSnapshot
	for _, rec := range s.data {
		snap := rec.snap
		if snap.TokenID == tokenID && snap.Timeframe == tf && snap.TimestampMs >= start && snap.TimestampMs <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
