package behavior

import (
	"errors"
	"testing"

	"token-feature-engine/internal/domain"
)

const nowMs = int64(1704153600000) // 2024-01-02 00:00:00 UTC

func transfer(sig string, ts int64, usd float64, class domain.TransferClassification, dest string) *domain.TransferEvent {
	return &domain.TransferEvent{
		Signature:      sig,
		TokenID:        "tokenA",
		TimestampMs:    ts,
		AmountToken:    1000,
		AmountUSD:      usd,
		SourceWallet:   "walletSrc",
		DestWallet:     dest,
		Classification: class,
	}
}

func f64(v float64) *float64 { return &v }

func TestCompute_WhaleThresholdBoundary(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// $9,999 misses the threshold, $10,000 meets it exactly.
	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-3600000, 9999, domain.TransferBuy, "walletA"),
			transfer("sig2", nowMs-7200000, 10000, domain.TransferBuy, "walletB"),
			transfer("sig3", nowMs-1800000, 50000, domain.TransferSell, "walletC"),
		},
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.WhaleBuys24h == nil || *out.WhaleBuys24h != 1 {
		t.Errorf("expected 1 whale buy, got %v", out.WhaleBuys24h)
	}
	if out.Source != domain.SourceRealOnly {
		t.Errorf("expected real_only, got %s", out.Source)
	}
}

func TestCompute_WhaleWindowExcludesOldTransfers(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-25*3600000, 20000, domain.TransferBuy, "walletA"), // 25h old
			transfer("sig2", nowMs-23*3600000, 20000, domain.TransferBuy, "walletB"),
		},
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.WhaleBuys24h == nil || *out.WhaleBuys24h != 1 {
		t.Errorf("expected 1 whale buy inside the window, got %v", out.WhaleBuys24h)
	}
}

func TestCompute_NewHoldersFirstAppearance(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// walletOld first appeared 3 days ago; its reappearance today must not
	// count. walletNew first appears inside the window.
	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-72*3600000, 100, domain.TransferBuy, "walletOld"),
			transfer("sig2", nowMs-3600000, 100, domain.TransferBuy, "walletOld"),
			transfer("sig3", nowMs-1800000, 100, domain.TransferBuy, "walletNew"),
		},
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.NewHolders24h == nil || *out.NewHolders24h != 1 {
		t.Errorf("expected 1 new holder, got %v", out.NewHolders24h)
	}
}

func TestCompute_VolumeSpikeRatio(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-3600000, 100, domain.TransferBuy, "walletA"),
		},
		CurrentWindowVolume:  f64(250000),
		BaselineWindowVolume: f64(100000),
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.VolumeSpikeRatio == nil || *out.VolumeSpikeRatio != 2.5 {
		t.Errorf("expected spike ratio 2.5, got %v", out.VolumeSpikeRatio)
	}
}

func TestCompute_ZeroBaselineYieldsNilRatio(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-3600000, 100, domain.TransferBuy, "walletA"),
		},
		CurrentWindowVolume:  f64(50000),
		BaselineWindowVolume: f64(0),
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.VolumeSpikeRatio != nil {
		t.Errorf("expected nil ratio on zero baseline, got %v", *out.VolumeSpikeRatio)
	}
}

func TestCompute_TokenAge(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Earliest candle predates the earliest transfer and wins.
	earliestCandle := nowMs - 48*3600000
	in := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-10*3600000, 100, domain.TransferBuy, "walletA"),
		},
		EarliestCandleMs: &earliestCandle,
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.TokenAgeHours == nil || *out.TokenAgeHours != 48 {
		t.Errorf("expected age 48h, got %v", out.TokenAgeHours)
	}
}

func TestCompute_NoHistoryIsErrorFallback(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	out, err := calc.Compute(Input{NowMs: nowMs})
	if !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if out.Source != domain.SourceErrorFallback {
		t.Errorf("expected error_fallback, got %s", out.Source)
	}
	if out.DataConfidence != 0 {
		t.Errorf("expected zero confidence, got %v", out.DataConfidence)
	}
	if out.WhaleBuys24h != nil || out.NewHolders24h != nil || out.TokenAgeHours != nil {
		t.Error("expected nil behavioral fields on error_fallback")
	}
}

func TestCompute_FeedErrorIsMathematicalFallback(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	earliestCandle := nowMs - 24*3600000
	in := Input{
		NowMs:                nowMs,
		FeedErr:              errors.New("rate limited"),
		EarliestCandleMs:     &earliestCandle,
		CurrentWindowVolume:  f64(300000),
		BaselineWindowVolume: f64(100000),
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.Source != domain.SourceMathFallback {
		t.Fatalf("expected mathematical_fallback, got %s", out.Source)
	}

	// Spike ratio 3.0 with default scaling: whales = (3-1)*2 = 4,
	// holders = 3*5 = 15.
	if out.WhaleBuys24h == nil || *out.WhaleBuys24h != 4 {
		t.Errorf("expected 4 estimated whale buys, got %v", out.WhaleBuys24h)
	}
	if out.NewHolders24h == nil || *out.NewHolders24h != 15 {
		t.Errorf("expected 15 estimated new holders, got %v", out.NewHolders24h)
	}
	if out.DataConfidence <= 0 || out.DataConfidence >= 1 {
		t.Errorf("expected confidence strictly between 0 and 1, got %v", out.DataConfidence)
	}
}

func TestCompute_EmptyTransfersIsMathematicalFallback(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Feed reachable (nil FeedErr) but no transfers recorded: counts are
	// estimated, same as a feed failure.
	earliestCandle := nowMs - 24*3600000
	in := Input{
		NowMs:            nowMs,
		EarliestCandleMs: &earliestCandle,
	}

	out, err := calc.Compute(in)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if out.Source != domain.SourceMathFallback {
		t.Errorf("expected mathematical_fallback, got %s", out.Source)
	}
	// Candle-derived age still backs data_confidence.
	if out.DataConfidence <= 0 || out.DataConfidence >= 1 {
		t.Errorf("expected confidence strictly between 0 and 1, got %v", out.DataConfidence)
	}
}

func TestCompute_PartialHistoryIsRealPrimary(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	full := Input{
		NowMs: nowMs,
		Transfers: []*domain.TransferEvent{
			transfer("sig1", nowMs-3600000, 100, domain.TransferBuy, "walletA"),
		},
		CurrentWindowVolume:  f64(100),
		BaselineWindowVolume: f64(100),
	}
	partial := full
	partial.PartialHistory = true

	fullOut, err := calc.Compute(full)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	partialOut, err := calc.Compute(partial)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if partialOut.Source != domain.SourceRealPrimary {
		t.Errorf("expected real_primary, got %s", partialOut.Source)
	}
	if fullOut.DataConfidence != 1 {
		t.Errorf("expected full confidence 1.0, got %v", fullOut.DataConfidence)
	}
	if partialOut.DataConfidence >= fullOut.DataConfidence {
		t.Errorf("expected partial history to lower confidence: %v >= %v",
			partialOut.DataConfidence, fullOut.DataConfidence)
	}
}
