package feed

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"token-feature-engine/internal/domain"
)

const (
	pubkeyLen    = 32
	signatureLen = 64
)

// transferWire is the upstream transfer representation. The mapping into
// the domain model is strict: a response either maps completely or the
// whole call fails with ErrUpstreamMalformed. No untyped pass-through
// reaches the calculation layer.
type transferWire struct {
	Signature   string  `json:"signature"`
	Mint        string  `json:"mint"`
	TimestampMs int64   `json:"timestampMs"`
	AmountToken float64 `json:"amountToken"`
	AmountUSD   float64 `json:"amountUsd"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Side        string  `json:"side"`
}

// decodePubkey decodes a base58 address and checks the 32-byte length.
func decodePubkey(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", addr, err)
	}
	if len(raw) != pubkeyLen {
		return nil, fmt.Errorf("pubkey %q: %d bytes, want %d", addr, len(raw), pubkeyLen)
	}
	return raw, nil
}

// isOnCurve reports whether the 32-byte key decompresses to an ed25519
// point. Program-derived addresses are off-curve by construction, so this
// distinguishes user wallets from program vaults.
func isOnCurve(raw []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// validSignature checks a base58 transaction signature (64 bytes).
func validSignature(sig string) error {
	raw, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != signatureLen {
		return fmt.Errorf("signature: %d bytes, want %d", len(raw), signatureLen)
	}
	return nil
}

func classify(side string) domain.TransferClassification {
	switch side {
	case "buy":
		return domain.TransferBuy
	case "sell":
		return domain.TransferSell
	case "transfer":
		return domain.TransferPlain
	default:
		return domain.TransferUnknown
	}
}

// mapTransfer validates one wire record and maps it into the domain model.
// Destinations that are not on the ed25519 curve are program vaults, not
// holders; their wallet field is cleared so holder counting skips them.
func mapTransfer(w transferWire) (*domain.TransferEvent, error) {
	if err := validSignature(w.Signature); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamMalformed, err)
	}
	if _, err := decodePubkey(w.Mint); err != nil {
		return nil, fmt.Errorf("%w: mint: %v", ErrUpstreamMalformed, err)
	}
	if w.TimestampMs <= 0 {
		return nil, fmt.Errorf("%w: timestamp %d", ErrUpstreamMalformed, w.TimestampMs)
	}
	if w.AmountToken < 0 || w.AmountUSD < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrUpstreamMalformed)
	}

	srcRaw, err := decodePubkey(w.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: source: %v", ErrUpstreamMalformed, err)
	}
	dstRaw, err := decodePubkey(w.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrUpstreamMalformed, err)
	}

	ev := &domain.TransferEvent{
		Signature:      w.Signature,
		TokenID:        w.Mint,
		TimestampMs:    w.TimestampMs,
		AmountToken:    w.AmountToken,
		AmountUSD:      w.AmountUSD,
		Classification: classify(w.Side),
	}
	if isOnCurve(srcRaw) {
		ev.SourceWallet = w.Source
	}
	if isOnCurve(dstRaw) {
		ev.DestWallet = w.Destination
	}
	return ev, nil
}
