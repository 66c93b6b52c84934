package domain

// VolumeTier buckets tokens by 24h trading volume for refresh scheduling.
type VolumeTier string

const (
	TierHigh   VolumeTier = "high"   // refreshed every 1h
	TierMedium VolumeTier = "medium" // refreshed every 6h
	TierLow    VolumeTier = "low"    // refreshed every 24h
)

// PriorityCandidate is the ephemeral per-cycle selection input for one token.
// Computed fresh each cycle; never persisted.
type PriorityCandidate struct {
	TokenID        string
	StalenessHours float64 // hours since last enrichment; negative means never enriched
	QualityScore   float64 // [0,1], monotone in completeness, verification, liquidity
	VolumeTier     VolumeTier
	NeverEnriched  bool
}
