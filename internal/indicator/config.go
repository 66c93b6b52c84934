package indicator

import "token-feature-engine/internal/domain"

// PriceMode selects which per-bar price feeds the VWAP calculation.
type PriceMode string

const (
	// PriceTypical uses (high+low+close)/3.
	PriceTypical PriceMode = "typical"
	// PriceClose uses the bar close.
	PriceClose PriceMode = "close"
)

// Config holds all indicator parameters. Every threshold the calculators
// use lives here; nothing is hard-coded in the computation paths.
type Config struct {
	// VWAPWindow is the rolling window length in bars.
	VWAPWindow int
	// VWAPBandMult is the band multiplier k in vwap ± k*sigma.
	VWAPBandMult float64
	// PriceMode selects typical price or close for VWAP.
	PriceMode PriceMode

	// PivotWindow is the half-width w: a bar is a pivot low when its low is
	// the minimum over [i-w, i+w].
	PivotWindow int
	// ProximityThreshold marks near_support / near_resistance when the
	// signed distance is within this fraction of price.
	ProximityThreshold float64

	// TrendShortPeriod and TrendLongPeriod are the EMA periods compared per
	// timeframe for trend alignment.
	TrendShortPeriod int
	TrendLongPeriod  int
	// TrendTimeframes is the fixed set compared against the primary
	// timeframe's EMA-cross sign.
	TrendTimeframes []domain.Timeframe
	// TrendStrongThreshold marks trend_alignment_strong.
	TrendStrongThreshold float64

	// ProfileBins is the number of equal-width close-price bins for the
	// volume profile.
	ProfileBins int
}

// DefaultConfig returns the default indicator configuration.
func DefaultConfig() Config {
	return Config{
		VWAPWindow:           20,
		VWAPBandMult:         2.0,
		PriceMode:            PriceTypical,
		PivotWindow:          5,
		ProximityThreshold:   0.02,
		TrendShortPeriod:     9,
		TrendLongPeriod:      21,
		TrendTimeframes:      []domain.Timeframe{domain.Timeframe15m, domain.Timeframe1h, domain.Timeframe4h},
		TrendStrongThreshold: 0.75,
		ProfileBins:          10,
	}
}
