package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"finflow/config"
)

func newPublicTestClient(serverURL string) *PublicClient {
	return NewPublicClient(config.ExchangeSourceConfig{
		BaseURL:        serverURL,
		Symbol:         "BTCUSDT",
		TimeoutSeconds: 2,
	})
}

func TestCurrentPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("unexpected symbol: %s", r.URL.Query().Get("symbol"))
		}
		w.Write([]byte(`{
			"symbol": "BTCUSDT",
			"lastPrice": "64123.45000000",
			"priceChange": "-512.30000000",
			"priceChangePercent": "-0.793"
		}`))
	}))
	defer server.Close()

	rate := newPublicTestClient(server.URL).CurrentPrice(context.Background())
	if rate == nil {
		t.Fatal("expected a rate, got nil")
	}
	if !rate.Price.Equal(decimal.RequireFromString("64123.45")) {
		t.Errorf("price = %s", rate.Price)
	}
	if !rate.Change24h.Equal(decimal.RequireFromString("-512.3")) {
		t.Errorf("change = %s", rate.Change24h)
	}
	if rate.Timestamp <= 0 {
		t.Errorf("timestamp not set: %d", rate.Timestamp)
	}
}

func TestCurrentPriceSoftFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	if rate := newPublicTestClient(server.URL).CurrentPrice(context.Background()); rate != nil {
		t.Errorf("expected nil, got %+v", rate)
	}
}

func TestPriceHistory(t *testing.T) {
	// Fixed-position candles: open time, open, high, low, close, volume.
	// The second candle has open "0" to exercise the division guard.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("unexpected interval: %s", r.URL.Query().Get("interval"))
		}
		w.Write([]byte(`[
			[1705276800000, "100.0", "110.0", "95.0", "105.0", "1000"],
			[1705363200000, "0", "10.0", "0", "8.0", "500"],
			[1705449600000, "105.0", "120.0", "100.0", "84.0", "1500"]
		]`))
	}))
	defer server.Close()

	history := newPublicTestClient(server.URL).PriceHistory(context.Background(), 3)
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}

	// Upstream order (oldest-first) must be preserved as-is.
	if history[0].Date != "2024-01-15" || history[2].Date != "2024-01-17" {
		t.Errorf("unexpected dates: %s .. %s", history[0].Date, history[2].Date)
	}

	if !history[0].Value.Equal(decimal.RequireFromString("105")) {
		t.Errorf("value = %s, want close price 105", history[0].Value)
	}
	if !history[0].Change.Equal(decimal.RequireFromString("5")) {
		t.Errorf("change = %s, want 5", history[0].Change)
	}
	if !history[0].ChangePercent.Equal(decimal.RequireFromString("5")) {
		t.Errorf("changePercent = %s, want 5", history[0].ChangePercent)
	}

	// Zero open: change carries through, percent stays zero.
	if !history[1].Change.Equal(decimal.RequireFromString("8")) {
		t.Errorf("change = %s, want 8", history[1].Change)
	}
	if !history[1].ChangePercent.IsZero() {
		t.Errorf("changePercent = %s, want 0", history[1].ChangePercent)
	}

	if !history[2].Change.Equal(decimal.RequireFromString("-21")) {
		t.Errorf("change = %s, want -21", history[2].Change)
	}
	if !history[2].ChangePercent.Equal(decimal.RequireFromString("-20")) {
		t.Errorf("changePercent = %s, want -20", history[2].ChangePercent)
	}
}

func TestPriceHistoryErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
	}))
	defer server.Close()

	history := newPublicTestClient(server.URL).PriceHistory(context.Background(), 3)
	if len(history) != 0 {
		t.Errorf("expected empty history for error payload, got %d records", len(history))
	}
}
