package models

import "github.com/shopspring/decimal"

// NoWithdrawalData is the sentinel shown when the pool reports no payments.
const NoWithdrawalData = "no data"

// MiningRevenue holds the monetary half of the pool view. All amounts are in
// the coin's display unit, never in the pool's atomic integer unit.
type MiningRevenue struct {
	LastWithdrawal   string          `json:"lastWithdrawal"`
	ConfirmedBalance decimal.Decimal `json:"confirmedBalance"`
	PayoutThreshold  decimal.Decimal `json:"payoutThreshold"`
	Today            decimal.Decimal `json:"today"`
}

// MiningHashrate holds the performance half of the pool view.
type MiningHashrate struct {
	Avg24h decimal.Decimal `json:"avg24h"`
}

// MiningStats is the composite view built from the pool's statistics and
// payment history endpoints. PayoutDates keeps the upstream's newest-first
// order; callers build their own calendar lookup and do not depend on it.
type MiningStats struct {
	Revenue     MiningRevenue  `json:"revenue"`
	Hashrate    MiningHashrate `json:"hashrate"`
	PayoutDates []string       `json:"payoutDates"`
}
