package summary

import (
	"context"
	"sync"
	"time"

	"finflow/internal/models"
	"finflow/logger"
)

// The summary composes independent source adapters. Each call runs
// concurrently with per-call isolation: one source failing never suppresses
// another's result.

type BankSource interface {
	CurrentRate(ctx context.Context, code string) *models.CurrencyRate
	CurrentKeyRate(ctx context.Context) *models.KeyRate
}

type MarketSource interface {
	CurrentPrice(ctx context.Context) *models.CryptoRate
}

type OrderSource interface {
	OpenOrders(ctx context.Context, symbol string) ([]models.SpotOrder, error)
}

type PoolSource interface {
	Stats(ctx context.Context, wallet string) *models.MiningStats
}

// Summary is the combined snapshot served to the dashboard and pushed to
// websocket subscribers. Soft-failed sources appear as nulls; the signed
// source's failures are carried in Errors so operators can tell a
// configuration problem from "no data yet".
type Summary struct {
	Currency    *models.CurrencyRate `json:"currency"`
	KeyRate     *models.KeyRate      `json:"keyRate"`
	Crypto      *models.CryptoRate   `json:"crypto"`
	Mining      *models.MiningStats  `json:"mining"`
	OpenOrders  []models.SpotOrder   `json:"openOrders"`
	Errors      map[string]string    `json:"errors,omitempty"`
	GeneratedAt int64                `json:"generatedAt"`
}

type Service struct {
	bank   BankSource
	market MarketSource
	orders OrderSource
	pool   PoolSource

	currency string
	wallet   string

	log *logger.Log
}

// NewService wires the four adapters into one summary service.
func NewService(bank BankSource, market MarketSource, orders OrderSource, pool PoolSource, currency, wallet string) *Service {
	return &Service{
		bank:     bank,
		market:   market,
		orders:   orders,
		pool:     pool,
		currency: currency,
		wallet:   wallet,
		log:      logger.GetLogger(),
	}
}

// Collect gathers all source results concurrently and aggregates them.
func (s *Service) Collect(ctx context.Context) Summary {
	started := time.Now()
	result := Summary{Errors: map[string]string{}}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(5)
	go func() {
		defer wg.Done()
		rate := s.bank.CurrentRate(ctx, s.currency)
		mu.Lock()
		result.Currency = rate
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		keyRate := s.bank.CurrentKeyRate(ctx)
		mu.Lock()
		result.KeyRate = keyRate
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		crypto := s.market.CurrentPrice(ctx)
		mu.Lock()
		result.Crypto = crypto
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		mining := s.pool.Stats(ctx, s.wallet)
		mu.Lock()
		result.Mining = mining
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		orders, err := s.orders.OpenOrders(ctx, "")
		mu.Lock()
		if err != nil {
			result.Errors["orders"] = err.Error()
		} else {
			result.OpenOrders = orders
		}
		mu.Unlock()
	}()

	wg.Wait()

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	result.GeneratedAt = time.Now().UnixMilli()

	s.log.WithComponent("summary").WithFields(logger.Fields{
		"duration_ms": time.Since(started).Milliseconds(),
		"errors":      len(result.Errors),
	}).Debug("summary collected")

	return result
}
