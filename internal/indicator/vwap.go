package indicator

import (
	"math"

	"token-feature-engine/internal/domain"
)

// vwapResult holds the VWAP family computed for one bar position.
type vwapResult struct {
	vwap  float64
	upper float64
	lower float64
}

// barPrice returns the configured per-bar price.
func barPrice(c *domain.Candle, mode PriceMode) float64 {
	if mode == PriceClose {
		return c.Close
	}
	return c.TypicalPrice()
}

// vwapAt computes rolling VWAP and bands for the window ending at index i.
// Returns ok=false when the window has no volume (VWAP undefined).
func vwapAt(candles []*domain.Candle, i int, cfg Config) (vwapResult, bool) {
	start := i - cfg.VWAPWindow + 1
	if start < 0 {
		start = 0
	}

	var sumPV, sumV float64
	for j := start; j <= i; j++ {
		p := barPrice(candles[j], cfg.PriceMode)
		sumPV += p * candles[j].Volume
		sumV += candles[j].Volume
	}
	if sumV == 0 {
		return vwapResult{}, false
	}
	vwap := sumPV / sumV

	// Sigma is the standard deviation of (price - vwap) over the same window.
	var sumSq float64
	n := i - start + 1
	for j := start; j <= i; j++ {
		d := barPrice(candles[j], cfg.PriceMode) - vwap
		sumSq += d * d
	}
	sigma := math.Sqrt(sumSq / float64(n))

	return vwapResult{
		vwap:  vwap,
		upper: vwap + cfg.VWAPBandMult*sigma,
		lower: vwap - cfg.VWAPBandMult*sigma,
	}, true
}

// computeVWAP fills the VWAP family of fields on the feature struct.
// Requires at least one bar with volume; breakout flags additionally
// require a previous bar and stay false otherwise.
func computeVWAP(candles []*domain.Candle, cfg Config, out *domain.TechnicalFeatures) {
	n := len(candles)
	if n == 0 {
		return
	}

	last := n - 1
	cur, ok := vwapAt(candles, last, cfg)
	if !ok {
		return
	}

	closePrice := candles[last].Close
	out.VWAP = ptr(cur.vwap)
	out.VWAPDistance = ptr((closePrice - cur.vwap) / cur.vwap)
	out.VWAPUpperBand = ptr(cur.upper)
	out.VWAPLowerBand = ptr(cur.lower)

	if cur.upper != cur.lower {
		pos := (closePrice - cur.lower) / (cur.upper - cur.lower)
		out.VWAPBandPosition = ptr(clamp01(pos))
	}

	// Crossings are evaluated between the last two bars, each against the
	// band computed for its own window position.
	if n >= 2 {
		prev, prevOK := vwapAt(candles, last-1, cfg)
		if prevOK {
			prevClose := candles[last-1].Close
			out.VWAPBreakoutBullish = prevClose <= prev.upper && closePrice > cur.upper
			out.VWAPBreakoutBearish = prevClose >= prev.lower && closePrice < cur.lower
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
