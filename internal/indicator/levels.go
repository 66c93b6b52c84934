package indicator

import "token-feature-engine/internal/domain"

// isPivotLow reports whether the bar at i has the minimum low over [i-w, i+w].
func isPivotLow(candles []*domain.Candle, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if candles[j].Low < candles[i].Low {
			return false
		}
	}
	return true
}

// isPivotHigh reports whether the bar at i has the maximum high over [i-w, i+w].
func isPivotHigh(candles []*domain.Candle, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if candles[j].High > candles[i].High {
			return false
		}
	}
	return true
}

// computeLevels fills support/resistance fields. A pivot needs w bars on
// both sides, so series shorter than 2w+1 yield nil levels and false flags.
func computeLevels(candles []*domain.Candle, cfg Config, out *domain.TechnicalFeatures) {
	n := len(candles)
	w := cfg.PivotWindow
	if n < 2*w+1 {
		return
	}

	closePrice := candles[n-1].Close

	// Most recent pivot low below close and pivot high above close.
	for i := n - 1 - w; i >= w; i-- {
		if out.SupportLevel == nil && candles[i].Low < closePrice && isPivotLow(candles, i, w) {
			out.SupportLevel = ptr(candles[i].Low)
		}
		if out.ResistanceLevel == nil && candles[i].High > closePrice && isPivotHigh(candles, i, w) {
			out.ResistanceLevel = ptr(candles[i].High)
		}
		if out.SupportLevel != nil && out.ResistanceLevel != nil {
			break
		}
	}

	if closePrice == 0 {
		return
	}

	if out.SupportLevel != nil {
		dist := (closePrice - *out.SupportLevel) / closePrice
		out.SupportDistance = ptr(dist)
		out.NearSupport = dist <= cfg.ProximityThreshold
	}
	if out.ResistanceLevel != nil {
		dist := (*out.ResistanceLevel - closePrice) / closePrice
		out.ResistanceDistance = ptr(dist)
		out.NearResistance = dist <= cfg.ProximityThreshold
	}
}
