package indicator

import "token-feature-engine/internal/domain"

// computeProfile fills volume_profile_score: close prices are bucketed into
// equal-width bins over the lookback window, and the score is the volume
// share of the bin containing the current close. A window whose closes
// never move scores 1 (the single occupied level carries all volume);
// zero total volume yields nil.
func computeProfile(candles []*domain.Candle, cfg Config, out *domain.TechnicalFeatures) {
	n := len(candles)
	if n == 0 || cfg.ProfileBins <= 0 {
		return
	}

	minClose, maxClose := candles[0].Close, candles[0].Close
	var totalVol float64
	for _, c := range candles {
		if c.Close < minClose {
			minClose = c.Close
		}
		if c.Close > maxClose {
			maxClose = c.Close
		}
		totalVol += c.Volume
	}
	if totalVol == 0 {
		return
	}
	if maxClose == minClose {
		out.VolumeProfileScore = ptr(1.0)
		return
	}

	binWidth := (maxClose - minClose) / float64(cfg.ProfileBins)
	binVol := make([]float64, cfg.ProfileBins)
	binOf := func(close float64) int {
		b := int((close - minClose) / binWidth)
		if b >= cfg.ProfileBins {
			b = cfg.ProfileBins - 1
		}
		return b
	}
	for _, c := range candles {
		binVol[binOf(c.Close)] += c.Volume
	}

	cur := binOf(candles[n-1].Close)
	out.VolumeProfileScore = ptr(binVol[cur] / totalVol)
}
