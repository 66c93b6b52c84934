package selector

import (
	"reflect"
	"testing"

	"token-feature-engine/internal/domain"
)

func TestTier_Cutoffs(t *testing.T) {
	s := NewSelector(DefaultConfig())

	cases := []struct {
		volume float64
		want   domain.VolumeTier
	}{
		{2000000, domain.TierHigh},
		{1000000, domain.TierHigh}, // cutoff is inclusive
		{999999, domain.TierMedium},
		{100000, domain.TierMedium},
		{99999, domain.TierLow},
		{0, domain.TierLow},
	}
	for _, tc := range cases {
		if got := s.Tier(tc.volume); got != tc.want {
			t.Errorf("Tier(%v) = %s, want %s", tc.volume, got, tc.want)
		}
	}
}

func TestQualityScore_Monotone(t *testing.T) {
	s := NewSelector(DefaultConfig())

	symbol, name := "TKN", "Token"
	base := &domain.TokenInfo{TokenID: "mintA", LiquidityUSD: 100000}
	richer := &domain.TokenInfo{TokenID: "mintA", Symbol: &symbol, Name: &name, LiquidityUSD: 100000}
	verified := &domain.TokenInfo{TokenID: "mintA", Verified: true, LiquidityUSD: 100000}
	liquid := &domain.TokenInfo{TokenID: "mintA", LiquidityUSD: 400000}

	baseScore := s.QualityScore(base)
	if s.QualityScore(richer) <= baseScore {
		t.Error("expected score to rise with metadata completeness")
	}
	if s.QualityScore(verified) <= baseScore {
		t.Error("expected score to rise with verification")
	}
	if s.QualityScore(liquid) <= baseScore {
		t.Error("expected score to rise with liquidity")
	}

	// Liquidity saturates at the cap rather than growing unbounded.
	capped := &domain.TokenInfo{TokenID: "mintA", LiquidityUSD: 500000}
	beyond := &domain.TokenInfo{TokenID: "mintA", LiquidityUSD: 50000000}
	if s.QualityScore(beyond) != s.QualityScore(capped) {
		t.Error("expected liquidity contribution capped")
	}
}

func TestSelect_NeverEnrichedFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget = 3
	s := NewSelector(cfg)

	candidates := []domain.PriorityCandidate{
		{TokenID: "mintD", StalenessHours: 48, QualityScore: 1, VolumeTier: domain.TierLow},
		{TokenID: "mintB", NeverEnriched: true},
		{TokenID: "mintA", NeverEnriched: true},
		{TokenID: "mintC", StalenessHours: 72, QualityScore: 1, VolumeTier: domain.TierLow},
	}

	got := s.Select(candidates)
	if len(got) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(got))
	}
	// Never-enriched by token ID, then the staler due token.
	if got[0].TokenID != "mintA" || got[1].TokenID != "mintB" || got[2].TokenID != "mintC" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].TokenID, got[1].TokenID, got[2].TokenID)
	}
}

func TestSelect_TierIntervalsGateEligibility(t *testing.T) {
	s := NewSelector(DefaultConfig())

	candidates := []domain.PriorityCandidate{
		// High tier refreshes hourly: 2h staleness is due.
		{TokenID: "mintHigh", StalenessHours: 2, QualityScore: 1, VolumeTier: domain.TierHigh},
		// Medium tier waits 6h: 2h staleness is not due yet.
		{TokenID: "mintMed", StalenessHours: 2, QualityScore: 1, VolumeTier: domain.TierMedium},
		// Low tier waits 24h: exactly 24h is due.
		{TokenID: "mintLow", StalenessHours: 24, QualityScore: 1, VolumeTier: domain.TierLow},
	}

	got := s.Select(candidates)
	ids := make(map[string]bool)
	for _, c := range got {
		ids[c.TokenID] = true
	}
	if !ids["mintHigh"] || !ids["mintLow"] {
		t.Errorf("expected mintHigh and mintLow selected, got %v", ids)
	}
	if ids["mintMed"] {
		t.Error("did not expect mintMed before its interval elapsed")
	}
}

func TestSelect_RankAndBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget = 2
	s := NewSelector(cfg)

	candidates := []domain.PriorityCandidate{
		{TokenID: "mintA", StalenessHours: 30, QualityScore: 0.5, VolumeTier: domain.TierLow}, // rank 15
		{TokenID: "mintB", StalenessHours: 25, QualityScore: 1.0, VolumeTier: domain.TierLow}, // rank 25
		{TokenID: "mintC", StalenessHours: 40, QualityScore: 0.5, VolumeTier: domain.TierLow}, // rank 20
	}

	got := s.Select(candidates)
	if len(got) != 2 {
		t.Fatalf("expected budget cutoff at 2, got %d", len(got))
	}
	if got[0].TokenID != "mintB" || got[1].TokenID != "mintC" {
		t.Errorf("expected mintB, mintC; got %s, %s", got[0].TokenID, got[1].TokenID)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget = 3
	s := NewSelector(cfg)

	// Equal ranks everywhere: ordering must fall back to token ID and be
	// identical across runs.
	candidates := []domain.PriorityCandidate{
		{TokenID: "mintC", StalenessHours: 48, QualityScore: 0.5, VolumeTier: domain.TierLow},
		{TokenID: "mintA", StalenessHours: 48, QualityScore: 0.5, VolumeTier: domain.TierLow},
		{TokenID: "mintB", StalenessHours: 48, QualityScore: 0.5, VolumeTier: domain.TierLow},
	}

	first := s.Select(candidates)
	for i := 0; i < 10; i++ {
		if again := s.Select(candidates); !reflect.DeepEqual(first, again) {
			t.Fatalf("selection not deterministic: %v vs %v", first, again)
		}
	}
	if first[0].TokenID != "mintA" || first[1].TokenID != "mintB" || first[2].TokenID != "mintC" {
		t.Errorf("expected token ID tiebreak order, got %v", first)
	}
}

func TestBuildCandidate(t *testing.T) {
	s := NewSelector(DefaultConfig())
	nowMs := int64(1704153600000)

	never := &domain.TokenInfo{TokenID: "mintA"}
	if c := s.BuildCandidate(never, 0, nowMs); !c.NeverEnriched {
		t.Error("expected NeverEnriched for a token without enrichment timestamp")
	}

	last := nowMs - 6*3600000
	enriched := &domain.TokenInfo{TokenID: "mintB", LastEnrichedAt: &last}
	c := s.BuildCandidate(enriched, 2000000, nowMs)
	if c.NeverEnriched {
		t.Error("did not expect NeverEnriched")
	}
	if c.StalenessHours != 6 {
		t.Errorf("expected staleness 6h, got %v", c.StalenessHours)
	}
	if c.VolumeTier != domain.TierHigh {
		t.Errorf("expected high tier, got %s", c.VolumeTier)
	}
}
