package behavior

// backing scores how well each behavioral field is grounded in real data:
// 1 for fields computed from real observations, ApproxCredit for
// approximations over partial history, EstimateCredit for shape-derived
// estimates, 0 for fields that could not be produced at all.
type backing struct {
	whales  float64
	holders float64
	spike   float64
	age     float64
}

// confidence blends the per-field backing scores into data_confidence
// using the configured weights. The result lies in [0,1] and is zero only
// when every field is unbacked.
func (c *Calculator) confidence(b backing) float64 {
	w := c.cfg.ConfidenceWeights
	totalW := w.WhaleBuys + w.NewHolders + w.VolumeSpike + w.TokenAge
	if totalW == 0 {
		return 0
	}
	sum := w.WhaleBuys*b.whales + w.NewHolders*b.holders + w.VolumeSpike*b.spike + w.TokenAge*b.age
	conf := sum / totalW
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
