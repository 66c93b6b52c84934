package domain

// TransferClassification labels the direction of a transfer event.
type TransferClassification string

const (
	TransferBuy     TransferClassification = "buy"
	TransferSell    TransferClassification = "sell"
	TransferPlain   TransferClassification = "transfer"
	TransferUnknown TransferClassification = "unknown"
)

// TransferEvent represents one normalized on-chain transfer for a token.
// Corresponds to transfer_events table in PostgreSQL.
// Deduplicated by signature; immutable once written.
type TransferEvent struct {
	Signature      string                 // transaction signature (base58), unique
	TokenID        string                 // token identifier (mint address)
	TimestampMs    int64                  // Unix timestamp in milliseconds
	AmountToken    float64                // transferred amount in token units
	AmountUSD      float64                // estimated USD value at transfer time
	SourceWallet   string                 // sending wallet (base58)
	DestWallet     string                 // receiving wallet (base58)
	Classification TransferClassification // buy | sell | transfer | unknown
}
