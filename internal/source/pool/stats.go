package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finflow/config"
	"finflow/internal/fetch"
	"finflow/internal/models"
	"finflow/logger"
)

// The pool reports monetary amounts as integers in the coin's smallest
// indivisible unit, scaled by 1e12 per coin.
const atomicExponent = -12

// Client aggregates the pool's statistics and payment history endpoints into
// one composite view. A dashboard with half its numbers missing is worse
// than none, so the composite is all-or-nothing: if either endpoint fails
// the whole operation degrades to nil.
type Client struct {
	cfg  config.PoolSourceConfig
	http *http.Client
	log  *logger.Log
}

// NewClient constructs a mining pool client.
func NewClient(cfg config.PoolSourceConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: fetch.NewClient(time.Duration(cfg.TimeoutSeconds) * time.Second),
		log:  logger.GetLogger(),
	}
}

type statsPayload struct {
	Collective struct {
		Avg24HashRate float64 `json:"avg24hashRate"`
	} `json:"collective"`
	Revenue struct {
		ConfirmedBalance int64 `json:"confirmedBalance"`
		PayoutThreshold  int64 `json:"payoutThreshold"`
		DailyCredited    int64 `json:"dailyCredited"`
	} `json:"revenue"`
}

// payment timestamps are seconds since epoch, unlike the exchange's
// millisecond instants.
type payment struct {
	TS     int64 `json:"ts"`
	Amount int64 `json:"amount"`
}

// fromAtomic converts an atomic integer amount to the coin's display unit.
// The conversion is an exact power-of-ten shift.
func fromAtomic(n int64) decimal.Decimal {
	return decimal.New(n, atomicExponent)
}

// Stats fetches balance/hashrate statistics and the payment history for the
// wallet and merges them. All dates are rendered in UTC.
func (c *Client) Stats(ctx context.Context, wallet string) *models.MiningStats {
	logger.RecordFetch("pool")
	log := c.log.WithComponent("pool_stats").WithFields(logger.Fields{"wallet": wallet})

	if wallet == "" {
		logger.RecordSoftFail("pool")
		log.Debug("no wallet address configured")
		return nil
	}

	statsBody, err := fetch.Get(ctx, c.http, fmt.Sprintf("%s/stats/%s", c.cfg.BaseURL, wallet))
	if err != nil {
		logger.RecordSoftFail("pool")
		log.WithError(err).Warn("failed to fetch pool statistics")
		return nil
	}

	paymentsBody, err := fetch.Get(ctx, c.http, fmt.Sprintf("%s/payments/%s", c.cfg.BaseURL, wallet))
	if err != nil {
		logger.RecordSoftFail("pool")
		log.WithError(err).Warn("failed to fetch payment history")
		return nil
	}

	var stats statsPayload
	if err := json.Unmarshal(statsBody, &stats); err != nil {
		logger.RecordSoftFail("pool")
		log.WithError(err).Warn("failed to decode pool statistics")
		return nil
	}

	var payments []payment
	if err := json.Unmarshal(paymentsBody, &payments); err != nil {
		logger.RecordSoftFail("pool")
		log.WithError(err).Warn("failed to decode payment history")
		return nil
	}

	lastWithdrawal := models.NoWithdrawalData
	if len(payments) > 0 {
		// Payments arrive newest-first.
		lastWithdrawal = time.Unix(payments[0].TS, 0).UTC().Format("02.01.2006")
	}

	payoutDates := make([]string, 0, len(payments))
	for _, p := range payments {
		payoutDates = append(payoutDates, time.Unix(p.TS, 0).UTC().Format("2006-01-02"))
	}

	return &models.MiningStats{
		Revenue: models.MiningRevenue{
			LastWithdrawal:   lastWithdrawal,
			ConfirmedBalance: fromAtomic(stats.Revenue.ConfirmedBalance),
			PayoutThreshold:  fromAtomic(stats.Revenue.PayoutThreshold),
			Today:            fromAtomic(stats.Revenue.DailyCredited),
		},
		Hashrate: models.MiningHashrate{
			Avg24h: decimal.NewFromFloat(stats.Collective.Avg24HashRate),
		},
		PayoutDates: payoutDates,
	}
}
