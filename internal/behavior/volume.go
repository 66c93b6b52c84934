package behavior

import "token-feature-engine/internal/domain"

// WindowVolumes splits an ascending candle series into a current volume
// window of SpikeWindowBars bars and a trailing baseline. The baseline is
// the average volume of up to BaselineWindows full preceding windows of
// the same length, excluding the current one. A short series yields a
// partial current window; without at least one full preceding window the
// baseline is nil.
func WindowVolumes(candles []*domain.Candle, cfg Config) (current, baseline *float64) {
	n := len(candles)
	w := cfg.SpikeWindowBars
	if n == 0 || w <= 0 {
		return nil, nil
	}

	curStart := n - w
	if curStart < 0 {
		curStart = 0
	}
	var cur float64
	for _, c := range candles[curStart:] {
		cur += c.Volume
	}
	current = &cur

	var sums []float64
	for end := curStart; end-w >= 0 && len(sums) < cfg.BaselineWindows; end -= w {
		var sum float64
		for _, c := range candles[end-w : end] {
			sum += c.Volume
		}
		sums = append(sums, sum)
	}
	if len(sums) == 0 {
		return current, nil
	}

	var total float64
	for _, s := range sums {
		total += s
	}
	avg := total / float64(len(sums))
	return current, &avg
}
