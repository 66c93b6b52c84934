package domain

// Candle represents one normalized OHLCV bar for a token over a fixed timeframe.
// Corresponds to candles table in PostgreSQL.
// Unique per (token_id, timeframe, timestamp_ms); rows are never mutated,
// late corrections arrive as new rows with a later ingestion time.
type Candle struct {
	TokenID     string    // token identifier (mint address)
	Timeframe   Timeframe // bar duration
	TimestampMs int64     // bar open time, Unix milliseconds
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // quote volume over the bar
}

// TypicalPrice returns (high+low+close)/3.
func (c *Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}
