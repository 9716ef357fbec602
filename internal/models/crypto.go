package models

import "github.com/shopspring/decimal"

// CryptoRate is the current exchange price of the configured trading pair.
// Timestamp is the adapter's own fetch time in milliseconds since epoch; the
// ticker endpoint does not return one.
type CryptoRate struct {
	Price            decimal.Decimal `json:"price"`
	Timestamp        int64           `json:"timestamp"`
	Change24h        decimal.Decimal `json:"change24h"`
	ChangePercent24h decimal.Decimal `json:"changePercent24h"`
}
