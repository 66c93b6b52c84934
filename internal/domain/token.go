package domain

// TokenInfo represents a tradable token from the registry.
// Corresponds to tokens table in PostgreSQL.
type TokenInfo struct {
	TokenID        string  // mint address, PRIMARY KEY
	Symbol         *string // nullable
	Name           *string // nullable
	Decimals       int
	Verified       bool    // registry verification flag
	LiquidityUSD   float64 // pooled liquidity estimate
	LogoURI        *string // nullable, counts toward metadata completeness
	Website        *string // nullable, counts toward metadata completeness
	LastEnrichedAt *int64  // ms timestamp of last behavioral enrichment, nil if never
	CreatedAt      int64   // record creation timestamp (ms)
}

// MetadataCompleteness returns the fraction of optional metadata fields
// that are present, in [0,1].
func (t *TokenInfo) MetadataCompleteness() float64 {
	present := 0
	if t.Symbol != nil && *t.Symbol != "" {
		present++
	}
	if t.Name != nil && *t.Name != "" {
		present++
	}
	if t.LogoURI != nil && *t.LogoURI != "" {
		present++
	}
	if t.Website != nil && *t.Website != "" {
		present++
	}
	return float64(present) / 4
}
