package clickhouse

import (
	"context"
	"fmt"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	token_id, timeframe, timestamp_ms,
	vwap, vwap_distance, vwap_upper_band, vwap_lower_band, vwap_band_position,
	support_level, resistance_level, support_distance, resistance_distance,
	trend_alignment_score, volume_profile_score,
	vwap_breakout_bullish, vwap_breakout_bearish,
	near_support, near_resistance, trend_alignment_strong,
	whale_buys_24h, new_holders_24h, volume_spike_ratio, token_age_hours,
	data_confidence, analysis_source,
	smart_money_index, smart_money_bullish
`

// Append adds a new snapshot. MergeTree does not enforce uniqueness, so
// the key is checked explicitly before insert.
func (s *SnapshotStore) Append(ctx context.Context, snap *domain.TokenFeatureSnapshot) error {
	if snap == nil || snap.TokenID == "" || !snap.Timeframe.Valid() {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, snap.TokenID, snap.Timeframe, snap.TimestampMs)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx,
		`INSERT INTO token_feature_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	tech := snap.Technical
	beh := snap.Behavioral
	err = batch.Append(
		snap.TokenID, string(snap.Timeframe), snap.TimestampMs,
		tech.VWAP, tech.VWAPDistance, tech.VWAPUpperBand, tech.VWAPLowerBand, tech.VWAPBandPosition,
		tech.SupportLevel, tech.ResistanceLevel, tech.SupportDistance, tech.ResistanceDistance,
		tech.TrendAlignmentScore, tech.VolumeProfileScore,
		boolToUint8(tech.VWAPBreakoutBullish), boolToUint8(tech.VWAPBreakoutBearish),
		boolToUint8(tech.NearSupport), boolToUint8(tech.NearResistance), boolToUint8(tech.TrendAlignmentStrong),
		toNullableInt64(beh.WhaleBuys24h), toNullableInt64(beh.NewHolders24h),
		beh.VolumeSpikeRatio, beh.TokenAgeHours,
		beh.DataConfidence, string(beh.Source),
		snap.SmartMoneyIndex, boolToUint8(snap.SmartMoneyBullish),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Latest returns the max-timestamp snapshot for (token, timeframe). Ties on
// timestamp are broken by insertion time, most recent wins.
func (s *SnapshotStore) Latest(ctx context.Context, tokenID string, tf domain.Timeframe) (*domain.TokenFeatureSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM token_feature_snapshots
		WHERE token_id = ? AND timeframe = ?
		ORDER BY timestamp_ms DESC, inserted_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tokenID, string(tf))
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// LatestAll returns the latest snapshot per token for a timeframe, ordered
// by token_id ASC.
func (s *SnapshotStore) LatestAll(ctx context.Context, tf domain.Timeframe) ([]*domain.TokenFeatureSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM token_feature_snapshots
		WHERE timeframe = ?
		ORDER BY token_id ASC, timestamp_ms DESC, inserted_at DESC
		LIMIT 1 BY token_id
	`

	rows, err := s.conn.Query(ctx, query, string(tf))
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for (token, timeframe) within
// [start, end] (inclusive), ordered by timestamp ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, tokenID string, tf domain.Timeframe, start, end int64) ([]*domain.TokenFeatureSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM token_feature_snapshots
		WHERE token_id = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, inserted_at DESC
		LIMIT 1 BY timestamp_ms
	`

	rows, err := s.conn.Query(ctx, query, tokenID, string(tf), start, end)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// exists checks if a snapshot with the given key exists.
func (s *SnapshotStore) exists(ctx context.Context, tokenID string, tf domain.Timeframe, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM token_feature_snapshots
		WHERE token_id = ? AND timeframe = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenID, string(tf), timestampMs).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// toNullableInt64 converts *int to *int64 for ClickHouse Nullable(Int64).
func toNullableInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.TokenFeatureSnapshot, error) {
	var snaps []*domain.TokenFeatureSnapshot

	for rows.Next() {
		var snap domain.TokenFeatureSnapshot
		var timeframe, source string
		var breakoutBull, breakoutBear, nearSup, nearRes, trendStrong, smartBull uint8
		var whaleBuys, newHolders *int64

		err := rows.Scan(
			&snap.TokenID, &timeframe, &snap.TimestampMs,
			&snap.Technical.VWAP, &snap.Technical.VWAPDistance,
			&snap.Technical.VWAPUpperBand, &snap.Technical.VWAPLowerBand,
			&snap.Technical.VWAPBandPosition,
			&snap.Technical.SupportLevel, &snap.Technical.ResistanceLevel,
			&snap.Technical.SupportDistance, &snap.Technical.ResistanceDistance,
			&snap.Technical.TrendAlignmentScore, &snap.Technical.VolumeProfileScore,
			&breakoutBull, &breakoutBear,
			&nearSup, &nearRes, &trendStrong,
			&whaleBuys, &newHolders,
			&snap.Behavioral.VolumeSpikeRatio, &snap.Behavioral.TokenAgeHours,
			&snap.Behavioral.DataConfidence, &source,
			&snap.SmartMoneyIndex, &smartBull,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.Timeframe = domain.Timeframe(timeframe)
		snap.Behavioral.Source = domain.AnalysisSource(source)
		snap.Technical.VWAPBreakoutBullish = breakoutBull == 1
		snap.Technical.VWAPBreakoutBearish = breakoutBear == 1
		snap.Technical.NearSupport = nearSup == 1
		snap.Technical.NearResistance = nearRes == 1
		snap.Technical.TrendAlignmentStrong = trendStrong == 1
		snap.SmartMoneyBullish = smartBull == 1

		if whaleBuys != nil {
			v := int(*whaleBuys)
			snap.Behavioral.WhaleBuys24h = &v
		}
		if newHolders != nil {
			v := int(*newHolders)
			snap.Behavioral.NewHolders24h = &v
		}

		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}
