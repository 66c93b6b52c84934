package indicator

import "token-feature-engine/internal/domain"

// ema computes the exponential moving average of the close series, seeded
// with the SMA of the first period bars. Returns ok=false when the series
// is shorter than period.
func ema(candles []*domain.Candle, period int) (float64, bool) {
	if len(candles) < period || period <= 0 {
		return 0, false
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	cur := sum / float64(period)

	mult := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		cur = candles[i].Close*mult + cur*(1-mult)
	}
	return cur, true
}

// crossSign returns the sign of (short EMA - long EMA) for the series:
// +1 bullish, -1 bearish, 0 equal. ok=false when the series cannot cover
// the long period.
func crossSign(candles []*domain.Candle, cfg Config) (int, bool) {
	short, okS := ema(candles, cfg.TrendShortPeriod)
	long, okL := ema(candles, cfg.TrendLongPeriod)
	if !okS || !okL {
		return 0, false
	}
	switch {
	case short > long:
		return 1, true
	case short < long:
		return -1, true
	default:
		return 0, true
	}
}

// computeTrend fills trend_alignment_score and trend_alignment_strong.
// The primary series counts in both numerator and denominator; configured
// timeframes with insufficient history are excluded from both. A nil score
// means not even the primary had enough bars.
func computeTrend(primary []*domain.Candle, byTimeframe map[domain.Timeframe][]*domain.Candle, primaryTF domain.Timeframe, cfg Config, out *domain.TechnicalFeatures) {
	primarySign, ok := crossSign(primary, cfg)
	if !ok {
		return
	}

	agree, total := 1, 1
	for _, tf := range cfg.TrendTimeframes {
		if tf == primaryTF {
			continue
		}
		sign, ok := crossSign(byTimeframe[tf], cfg)
		if !ok {
			continue
		}
		total++
		if sign == primarySign {
			agree++
		}
	}

	score := float64(agree) / float64(total)
	out.TrendAlignmentScore = ptr(score)
	out.TrendAlignmentStrong = score >= cfg.TrendStrongThreshold
}
