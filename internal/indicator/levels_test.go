package indicator

import (
	"testing"

	"token-feature-engine/internal/domain"
)

func bar(ts int64, high, low, close float64) *domain.Candle {
	return &domain.Candle{
		TokenID:     "tokenA",
		Timeframe:   domain.Timeframe1h,
		TimestampMs: ts,
		Open:        close,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      100,
	}
}

func TestComputeLevels_PivotDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PivotWindow = 2
	cfg.ProximityThreshold = 0.025

	// Pivot low 9.75 at index 2 (minimum over indices 0..4), pivot high
	// 10.5 at index 4 (maximum over indices 2..6). Last close is 10.0, so
	// the support distance is exactly the 2.5% threshold.
	candles := []*domain.Candle{
		bar(0, 10.2, 10.0, 10.1),
		bar(1, 10.2, 10.0, 10.1),
		bar(2, 10.1, 9.75, 9.9),
		bar(3, 10.3, 9.9, 10.2),
		bar(4, 10.5, 10.0, 10.3),
		bar(5, 10.3, 10.0, 10.1),
		bar(6, 10.2, 10.0, 10.1),
		bar(7, 10.2, 10.0, 10.1),
		bar(8, 10.1, 9.95, 10.0),
	}

	var out domain.TechnicalFeatures
	computeLevels(candles, cfg, &out)

	if out.SupportLevel == nil || *out.SupportLevel != 9.75 {
		t.Fatalf("expected support 9.75, got %v", out.SupportLevel)
	}
	if out.ResistanceLevel == nil || *out.ResistanceLevel != 10.5 {
		t.Fatalf("expected resistance 10.5, got %v", out.ResistanceLevel)
	}

	// Distance equal to the threshold still counts as near.
	if out.SupportDistance == nil || *out.SupportDistance != 0.025 {
		t.Errorf("expected support distance 0.025, got %v", out.SupportDistance)
	}
	if !out.NearSupport {
		t.Error("expected near_support at the exact threshold")
	}

	// Resistance sits 5% away, past the threshold.
	if out.NearResistance {
		t.Error("did not expect near_resistance at 5%% distance")
	}
}

func TestComputeLevels_MostRecentPivot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PivotWindow = 2

	// Two pivot lows below the last close; the more recent one (9.7 at
	// index 7) wins even though the earlier one (9.5 at index 2) is deeper.
	candles := []*domain.Candle{
		bar(0, 10.2, 10.0, 10.1),
		bar(1, 10.2, 10.0, 10.1),
		bar(2, 10.0, 9.5, 9.8),
		bar(3, 10.2, 9.9, 10.1),
		bar(4, 10.2, 10.0, 10.1),
		bar(5, 10.2, 10.0, 10.1),
		bar(6, 10.2, 9.9, 10.0),
		bar(7, 10.0, 9.7, 9.9),
		bar(8, 10.2, 9.9, 10.1),
		bar(9, 10.2, 10.0, 10.1),
		bar(10, 10.2, 10.0, 10.1),
	}

	var out domain.TechnicalFeatures
	computeLevels(candles, cfg, &out)

	if out.SupportLevel == nil || *out.SupportLevel != 9.7 {
		t.Fatalf("expected most recent pivot low 9.7, got %v", out.SupportLevel)
	}
}

func TestComputeLevels_InsufficientHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PivotWindow = 5

	// Fewer than 2w+1 bars: no pivots can be confirmed.
	candles := []*domain.Candle{
		bar(0, 10.2, 9.8, 10.0),
		bar(1, 10.3, 9.9, 10.1),
		bar(2, 10.2, 9.9, 10.0),
	}

	var out domain.TechnicalFeatures
	computeLevels(candles, cfg, &out)

	if out.SupportLevel != nil || out.ResistanceLevel != nil {
		t.Errorf("expected nil levels, got support=%v resistance=%v", out.SupportLevel, out.ResistanceLevel)
	}
	if out.NearSupport || out.NearResistance {
		t.Error("expected proximity flags false without levels")
	}
}
