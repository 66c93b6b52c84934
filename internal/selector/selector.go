// Package selector ranks tokens for refresh under a fixed per-cycle call
// budget. Selection is deterministic: identical inputs always produce the
// identical ordered selection.
package selector

import (
	"sort"

	"token-feature-engine/internal/domain"
)

// Config holds tiering, refresh and quality-score parameters.
type Config struct {
	// TierHighVolumeUSD and TierMediumVolumeUSD are the 24h-volume cutoffs
	// for the high and medium tiers; everything below is low.
	TierHighVolumeUSD   float64
	TierMediumVolumeUSD float64

	// Per-tier refresh intervals in hours.
	RefreshHighHours   float64
	RefreshMediumHours float64
	RefreshLowHours    float64

	// Quality score weights. Liquidity is normalized against
	// LiquidityCapUSD and clamped to 1 before weighting.
	CompletenessWeight float64
	VerifiedWeight     float64
	LiquidityWeight    float64
	LiquidityCapUSD    float64

	// Budget is the per-cycle call budget B.
	Budget int
}

// DefaultConfig returns the default selector configuration.
func DefaultConfig() Config {
	return Config{
		TierHighVolumeUSD:   1000000,
		TierMediumVolumeUSD: 100000,
		RefreshHighHours:    1,
		RefreshMediumHours:  6,
		RefreshLowHours:     24,
		CompletenessWeight:  0.4,
		VerifiedWeight:      0.3,
		LiquidityWeight:     0.3,
		LiquidityCapUSD:     500000,
		Budget:              50,
	}
}

// Selector builds and ranks priority candidates.
type Selector struct {
	cfg Config
}

// NewSelector returns a Selector with the given configuration.
func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Tier assigns a volume tier from 24h trading volume.
func (s *Selector) Tier(volume24hUSD float64) domain.VolumeTier {
	switch {
	case volume24hUSD >= s.cfg.TierHighVolumeUSD:
		return domain.TierHigh
	case volume24hUSD >= s.cfg.TierMediumVolumeUSD:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

func (s *Selector) refreshInterval(tier domain.VolumeTier) float64 {
	switch tier {
	case domain.TierHigh:
		return s.cfg.RefreshHighHours
	case domain.TierMedium:
		return s.cfg.RefreshMediumHours
	default:
		return s.cfg.RefreshLowHours
	}
}

// QualityScore blends metadata completeness, verification status and
// liquidity. It is monotonically increasing in each factor.
func (s *Selector) QualityScore(tok *domain.TokenInfo) float64 {
	score := s.cfg.CompletenessWeight * tok.MetadataCompleteness()
	if tok.Verified {
		score += s.cfg.VerifiedWeight
	}
	liq := tok.LiquidityUSD / s.cfg.LiquidityCapUSD
	if liq > 1 {
		liq = 1
	}
	score += s.cfg.LiquidityWeight * liq
	return score
}

// BuildCandidate derives the per-cycle candidate record for one token.
func (s *Selector) BuildCandidate(tok *domain.TokenInfo, volume24hUSD float64, nowMs int64) domain.PriorityCandidate {
	cand := domain.PriorityCandidate{
		TokenID:      tok.TokenID,
		QualityScore: s.QualityScore(tok),
		VolumeTier:   s.Tier(volume24hUSD),
	}
	if tok.LastEnrichedAt == nil {
		cand.NeverEnriched = true
	} else {
		cand.StalenessHours = float64(nowMs-*tok.LastEnrichedAt) / 3600000
	}
	return cand
}

// Select picks up to Budget candidates: never-enriched tokens first
// (ordered by token ID), then tokens past their tier refresh interval
// ranked by staleness x quality descending, token ID breaking ties.
func (s *Selector) Select(candidates []domain.PriorityCandidate) []domain.PriorityCandidate {
	var fresh, due []domain.PriorityCandidate
	for _, c := range candidates {
		switch {
		case c.NeverEnriched:
			fresh = append(fresh, c)
		case c.StalenessHours >= s.refreshInterval(c.VolumeTier):
			due = append(due, c)
		}
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].TokenID < fresh[j].TokenID
	})
	sort.Slice(due, func(i, j int) bool {
		ri := due[i].StalenessHours * due[i].QualityScore
		rj := due[j].StalenessHours * due[j].QualityScore
		if ri != rj {
			return ri > rj
		}
		return due[i].TokenID < due[j].TokenID
	})

	selected := make([]domain.PriorityCandidate, 0, s.cfg.Budget)
	for _, c := range fresh {
		if len(selected) == s.cfg.Budget {
			return selected
		}
		selected = append(selected, c)
	}
	for _, c := range due {
		if len(selected) == s.cfg.Budget {
			break
		}
		selected = append(selected, c)
	}
	return selected
}
