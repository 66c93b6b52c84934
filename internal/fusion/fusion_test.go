package fusion

import (
	"testing"

	"token-feature-engine/internal/domain"
)

const nowMs = int64(1704153600000)

func largeTransfer(sig string, ts int64, usd float64, class domain.TransferClassification) *domain.TransferEvent {
	return &domain.TransferEvent{
		Signature:      sig,
		TokenID:        "tokenA",
		TimestampMs:    ts,
		AmountUSD:      usd,
		Classification: class,
	}
}

func TestFuse_SmartMoneyIndex(t *testing.T) {
	fuser := NewFuser(DefaultConfig())

	// Large buys 30k, large sells 10k: index = 20k/40k = 0.5. The 5k buy
	// sits under the large-transfer threshold and is ignored.
	transfers := []*domain.TransferEvent{
		largeTransfer("sig1", nowMs-3600000, 30000, domain.TransferBuy),
		largeTransfer("sig2", nowMs-7200000, 10000, domain.TransferSell),
		largeTransfer("sig3", nowMs-1800000, 5000, domain.TransferBuy),
	}

	snap := fuser.Fuse("tokenA", domain.Timeframe1h, nowMs, domain.TechnicalFeatures{}, domain.BehavioralFeatures{}, transfers, nowMs)

	if snap.SmartMoneyIndex == nil || *snap.SmartMoneyIndex != 0.5 {
		t.Fatalf("expected index 0.5, got %v", snap.SmartMoneyIndex)
	}
	if !snap.SmartMoneyBullish {
		t.Error("expected smart_money_bullish at positive index")
	}
}

func TestFuse_IndexBounds(t *testing.T) {
	fuser := NewFuser(DefaultConfig())

	// Only sells: index must be exactly -1, the lower bound.
	transfers := []*domain.TransferEvent{
		largeTransfer("sig1", nowMs-3600000, 50000, domain.TransferSell),
	}

	snap := fuser.Fuse("tokenA", domain.Timeframe1h, nowMs, domain.TechnicalFeatures{}, domain.BehavioralFeatures{}, transfers, nowMs)

	if snap.SmartMoneyIndex == nil || *snap.SmartMoneyIndex != -1 {
		t.Fatalf("expected index -1, got %v", snap.SmartMoneyIndex)
	}
	if snap.SmartMoneyBullish {
		t.Error("did not expect bullish flag at index -1")
	}
}

func TestFuse_NoLargeFlow(t *testing.T) {
	fuser := NewFuser(DefaultConfig())

	// Small transfers only, plus one large transfer outside the lookback.
	transfers := []*domain.TransferEvent{
		largeTransfer("sig1", nowMs-3600000, 500, domain.TransferBuy),
		largeTransfer("sig2", nowMs-48*3600000, 50000, domain.TransferBuy),
	}

	snap := fuser.Fuse("tokenA", domain.Timeframe1h, nowMs, domain.TechnicalFeatures{}, domain.BehavioralFeatures{}, transfers, nowMs)

	if snap.SmartMoneyIndex != nil {
		t.Errorf("expected nil index without large flow, got %v", *snap.SmartMoneyIndex)
	}
	if snap.SmartMoneyBullish {
		t.Error("expected bullish flag false without an index")
	}
}

func TestFuse_CarriesHalvesThrough(t *testing.T) {
	fuser := NewFuser(DefaultConfig())

	vwap := 12.5
	whales := 3
	tech := domain.TechnicalFeatures{VWAP: &vwap}
	beh := domain.BehavioralFeatures{
		WhaleBuys24h:   &whales,
		DataConfidence: 0.8,
		Source:         domain.SourceRealOnly,
	}

	snap := fuser.Fuse("tokenA", domain.Timeframe1h, nowMs, tech, beh, nil, nowMs)

	if snap.Technical.VWAP == nil || *snap.Technical.VWAP != 12.5 {
		t.Errorf("expected VWAP carried through, got %v", snap.Technical.VWAP)
	}
	if snap.Behavioral.WhaleBuys24h == nil || *snap.Behavioral.WhaleBuys24h != 3 {
		t.Errorf("expected whale count carried through, got %v", snap.Behavioral.WhaleBuys24h)
	}
	if snap.Behavioral.DataConfidence != 0.8 || snap.Behavioral.Source != domain.SourceRealOnly {
		t.Errorf("expected confidence and source carried through unchanged, got %v/%s",
			snap.Behavioral.DataConfidence, snap.Behavioral.Source)
	}
}
