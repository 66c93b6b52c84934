package domain

// AnalysisSource describes how much of a snapshot's behavioral half is
// backed by real transfer data versus estimation.
type AnalysisSource string

const (
	// SourceRealOnly means every behavioral field came from real transfers.
	SourceRealOnly AnalysisSource = "real_only"
	// SourceRealPrimary means transfers were real but a baseline had to be
	// approximated from partial history.
	SourceRealPrimary AnalysisSource = "real_primary"
	// SourceHybrid means some fields are real, some estimated.
	SourceHybrid AnalysisSource = "hybrid"
	// SourceMathFallback means all behavioral fields were estimated from
	// price/volume shape because the transfer feed was unavailable or empty.
	SourceMathFallback AnalysisSource = "mathematical_fallback"
	// SourceErrorFallback means an internal error voided the behavioral half;
	// behavioral fields are nil and confidence is zero.
	SourceErrorFallback AnalysisSource = "error_fallback"
)

// TechnicalFeatures holds indicator outputs computed purely from candle
// history. Nullable fields are nil when the required history is missing;
// one missing indicator never blocks its siblings.
type TechnicalFeatures struct {
	VWAP             *float64 // rolling volume-weighted average price
	VWAPDistance     *float64 // (close - vwap) / vwap
	VWAPUpperBand    *float64 // vwap + k*sigma
	VWAPLowerBand    *float64 // vwap - k*sigma
	VWAPBandPosition *float64 // (close - lower) / (upper - lower), clamped [0,1]; nil when bands collapse

	SupportLevel       *float64 // most recent pivot low below close
	ResistanceLevel    *float64 // most recent pivot high above close
	SupportDistance    *float64 // (close - support) / close
	ResistanceDistance *float64 // (resistance - close) / close

	TrendAlignmentScore *float64 // fraction of timeframes agreeing with primary, [0,1]
	VolumeProfileScore  *float64 // volume share of the bin containing close, [0,1]

	VWAPBreakoutBullish  bool
	VWAPBreakoutBearish  bool
	NearSupport          bool
	NearResistance       bool
	TrendAlignmentStrong bool
}

// BehavioralFeatures holds metrics derived from transfer-level activity,
// or their mathematical estimates when the feed degrades.
type BehavioralFeatures struct {
	WhaleBuys24h     *int     // buy transfers >= whale threshold in last 24h
	NewHolders24h    *int     // wallets whose first-ever inbound transfer falls in last 24h
	VolumeSpikeRatio *float64 // current window volume / trailing average; nil on zero baseline
	TokenAgeHours    *float64 // hours since earliest known transfer or candle

	DataConfidence float64        // [0,1], 0 only on error_fallback
	Source         AnalysisSource // provenance tag
}

// TokenFeatureSnapshot is one fused feature row per (token, timeframe,
// timestamp). Corresponds to token_feature_snapshots table in ClickHouse.
// Append-only; the "latest" projection returns the max-timestamp row.
type TokenFeatureSnapshot struct {
	TokenID     string
	Timeframe   Timeframe
	TimestampMs int64

	Technical  TechnicalFeatures
	Behavioral BehavioralFeatures

	SmartMoneyIndex   *float64 // net large-buy pressure in [-1,1]
	SmartMoneyBullish bool
}

// FreshLaunch reports whether the snapshot matches a fresh-launch screen:
// token age strictly below maxAgeHours and at least minNewHolders new
// holders. A snapshot missing either field never matches.
func (s *TokenFeatureSnapshot) FreshLaunch(maxAgeHours float64, minNewHolders int) bool {
	if s.Behavioral.TokenAgeHours == nil || s.Behavioral.NewHolders24h == nil {
		return false
	}
	return *s.Behavioral.TokenAgeHours < maxAgeHours && *s.Behavioral.NewHolders24h >= minNewHolders
}

// VolumeSpike reports whether the spike ratio meets the threshold. A nil
// ratio (no baseline) never matches.
func (s *TokenFeatureSnapshot) VolumeSpike(threshold float64) bool {
	return s.Behavioral.VolumeSpikeRatio != nil && *s.Behavioral.VolumeSpikeRatio >= threshold
}
