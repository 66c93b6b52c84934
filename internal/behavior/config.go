package behavior

// Weights controls how much each behavioral field contributes to
// data_confidence. The blend is a weighted average of per-field backing
// scores, so only the relative magnitudes matter.
type Weights struct {
	WhaleBuys   float64
	NewHolders  float64
	VolumeSpike float64
	TokenAge    float64
}

// Config holds all behavioral calculator parameters.
type Config struct {
	// WhaleThresholdUSD is the minimum estimated USD value for a buy to
	// count as a whale buy. The boundary is inclusive.
	WhaleThresholdUSD float64

	// SpikeWindowBars is the volume window length in bars; the trailing
	// baseline averages the preceding BaselineWindows windows of the same
	// length, excluding the current one.
	SpikeWindowBars int
	BaselineWindows int

	// EstWhalesPerSpike and EstHoldersPerSpike scale the mathematical
	// fallback estimates derived from the volume spike ratio.
	EstWhalesPerSpike  float64
	EstHoldersPerSpike float64

	// ApproxCredit is the backing score for fields approximated from
	// partial real history; EstimateCredit for fields estimated from
	// price/volume shape alone. Real fields score 1, missing fields 0.
	ApproxCredit   float64
	EstimateCredit float64

	ConfidenceWeights Weights
}

// DefaultConfig returns the default behavioral configuration.
func DefaultConfig() Config {
	return Config{
		WhaleThresholdUSD:  10000,
		SpikeWindowBars:    24,
		BaselineWindows:    6,
		EstWhalesPerSpike:  2,
		EstHoldersPerSpike: 5,
		ApproxCredit:       0.5,
		EstimateCredit:     0.25,
		ConfidenceWeights: Weights{
			WhaleBuys:   0.3,
			NewHolders:  0.3,
			VolumeSpike: 0.2,
			TokenAge:    0.2,
		},
	}
}
