package models

import "github.com/shopspring/decimal"

// CurrencyRate is a single dated observation of a fiat or crypto unit price.
// Date is always normalised to ISO form ("2006-01-02") regardless of the
// source locale. Change and ChangePercent are zero when the source does not
// provide enough context to compute them.
type CurrencyRate struct {
	Value         decimal.Decimal `json:"value"`
	Date          string          `json:"date"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// KeyRate is one entry of the central bank policy rate series. The series is
// sparse: entries exist only on the dates the rate changed.
type KeyRate struct {
	Rate decimal.Decimal `json:"rate"`
	Date string          `json:"date"`
}
