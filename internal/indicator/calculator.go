// Package indicator derives technical features from OHLCV candle series.
// All computations are pure and deterministic; indicators that lack
// sufficient history leave their fields nil without blocking the rest.
package indicator

import "token-feature-engine/internal/domain"

// Calculator computes the technical half of a feature snapshot.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator with the given configuration.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute derives all technical features for the primary timeframe.
// byTimeframe supplies candle series for the trend alignment set; entries
// may be missing or short, in which case those timeframes are skipped.
// Candles must be sorted by timestamp ascending.
func (c *Calculator) Compute(primaryTF domain.Timeframe, byTimeframe map[domain.Timeframe][]*domain.Candle) domain.TechnicalFeatures {
	var out domain.TechnicalFeatures

	primary := byTimeframe[primaryTF]
	if len(primary) == 0 {
		return out
	}

	computeVWAP(primary, c.cfg, &out)
	computeLevels(primary, c.cfg, &out)
	computeTrend(primary, byTimeframe, primaryTF, c.cfg, &out)
	computeProfile(primary, c.cfg, &out)

	return out
}
