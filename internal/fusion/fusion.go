// Package fusion merges the technical and behavioral halves of a feature
// computation into one snapshot and derives the composite smart-money
// fields. Fusion never modifies fields produced by either calculator.
package fusion

import "token-feature-engine/internal/domain"

// Config holds fusion parameters.
type Config struct {
	// LargeTransferUSD is the minimum estimated USD value for a transfer
	// to count toward the smart-money flow balance.
	LargeTransferUSD float64
	// BullishThreshold marks smart_money_bullish when the index meets or
	// exceeds it.
	BullishThreshold float64
	// LookbackMs bounds the transfer window considered for the index.
	LookbackMs int64
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		LargeTransferUSD: 10000,
		BullishThreshold: 0,
		LookbackMs:       24 * 3600000,
	}
}

// Fuser assembles feature snapshots.
type Fuser struct {
	cfg Config
}

// NewFuser returns a Fuser with the given configuration.
func NewFuser(cfg Config) *Fuser {
	return &Fuser{cfg: cfg}
}

// Fuse combines both calculator outputs into a snapshot for persistence.
// Technical and behavioral fields are carried through untouched, including
// the confidence and source tags; only the smart-money composites are
// added here.
func (f *Fuser) Fuse(tokenID string, tf domain.Timeframe, timestampMs int64, tech domain.TechnicalFeatures, beh domain.BehavioralFeatures, transfers []*domain.TransferEvent, nowMs int64) *domain.TokenFeatureSnapshot {
	snap := &domain.TokenFeatureSnapshot{
		TokenID:     tokenID,
		Timeframe:   tf,
		TimestampMs: timestampMs,
		Technical:   tech,
		Behavioral:  beh,
	}

	if idx, ok := f.smartMoneyIndex(transfers, nowMs); ok {
		snap.SmartMoneyIndex = &idx
		snap.SmartMoneyBullish = idx >= f.cfg.BullishThreshold
	}

	return snap
}

// smartMoneyIndex computes the normalized large-flow balance
// (buys - sells) / (buys + sells) over the lookback window, bounded to
// [-1, 1] by construction. ok=false when no large flow exists.
func (f *Fuser) smartMoneyIndex(transfers []*domain.TransferEvent, nowMs int64) (float64, bool) {
	cutoff := nowMs - f.cfg.LookbackMs

	var buyUSD, sellUSD float64
	for _, tr := range transfers {
		if tr.TimestampMs < cutoff || tr.AmountUSD < f.cfg.LargeTransferUSD {
			continue
		}
		switch tr.Classification {
		case domain.TransferBuy:
			buyUSD += tr.AmountUSD
		case domain.TransferSell:
			sellUSD += tr.AmountUSD
		}
	}

	total := buyUSD + sellUSD
	if total == 0 {
		return 0, false
	}
	return (buyUSD - sellUSD) / total, true
}
