package behavior

// estimateCounts derives whale-buy and new-holder estimates from the volume
// spike ratio alone. Elevated volume relative to baseline is read as
// proportional whale and holder activity; without a spike ratio both
// estimates are zero.
func estimateCounts(spike *float64, cfg Config) (whales, holders int) {
	if spike == nil {
		return 0, 0
	}
	excess := *spike - 1
	if excess < 0 {
		excess = 0
	}
	whales = int(excess * cfg.EstWhalesPerSpike)
	holders = int(*spike * cfg.EstHoldersPerSpike)
	return whales, holders
}
