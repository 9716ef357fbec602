package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"finflow/internal/models"
)

type stubBank struct {
	rate    *models.CurrencyRate
	keyRate *models.KeyRate
}

func (s *stubBank) CurrentRate(_ context.Context, code string) *models.CurrencyRate {
	return s.rate
}

func (s *stubBank) CurrentKeyRate(_ context.Context) *models.KeyRate {
	return s.keyRate
}

type stubMarket struct{ rate *models.CryptoRate }

func (s *stubMarket) CurrentPrice(_ context.Context) *models.CryptoRate { return s.rate }

type stubOrders struct {
	orders []models.SpotOrder
	err    error
}

func (s *stubOrders) OpenOrders(_ context.Context, _ string) ([]models.SpotOrder, error) {
	return s.orders, s.err
}

type stubPool struct{ stats *models.MiningStats }

func (s *stubPool) Stats(_ context.Context, _ string) *models.MiningStats { return s.stats }

func TestCollectAggregatesAllSources(t *testing.T) {
	svc := NewService(
		&stubBank{
			rate:    &models.CurrencyRate{Value: decimal.RequireFromString("91.5"), Date: "2024-01-15"},
			keyRate: &models.KeyRate{Rate: decimal.RequireFromString("21"), Date: "2024-12-16"},
		},
		&stubMarket{rate: &models.CryptoRate{Price: decimal.RequireFromString("64000"), Timestamp: 1}},
		&stubOrders{orders: []models.SpotOrder{{OrderID: "1"}}},
		&stubPool{stats: &models.MiningStats{PayoutDates: []string{"2023-11-14"}}},
		"USD", "wallet-1",
	)

	result := svc.Collect(context.Background())
	if result.Currency == nil || result.KeyRate == nil || result.Crypto == nil || result.Mining == nil {
		t.Fatalf("missing results: %+v", result)
	}
	if len(result.OpenOrders) != 1 {
		t.Errorf("openOrders = %v", result.OpenOrders)
	}
	if result.Errors != nil {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if result.GeneratedAt <= 0 {
		t.Error("generatedAt not set")
	}
}

func TestCollectIsolatesFailures(t *testing.T) {
	// The signed source fails hard and the bank returns nothing; the other
	// sources must still contribute.
	svc := NewService(
		&stubBank{},
		&stubMarket{rate: &models.CryptoRate{Price: decimal.RequireFromString("64000")}},
		&stubOrders{err: errors.New("exchange API credentials are not configured")},
		&stubPool{stats: &models.MiningStats{}},
		"USD", "wallet-1",
	)

	result := svc.Collect(context.Background())
	if result.Crypto == nil || result.Mining == nil {
		t.Fatal("healthy sources suppressed by a failing one")
	}
	if result.Currency != nil || result.KeyRate != nil {
		t.Error("soft-failed source should contribute nil")
	}
	if result.Errors["orders"] == "" {
		t.Errorf("signed failure not recorded: %v", result.Errors)
	}
}
