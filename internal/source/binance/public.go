package binance

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

// PublicClient reads unauthenticated market data for the configured trading
// pair. Like the central bank client it soft-fails: a broken fetch or decode
// yields nil or an empty slice, never an error.
type PublicClient struct {
	cfg  config.ExchangeSourceConfig
	http *http.Client
	log  *logger.Log
}

// NewPublicClient constructs a public market data client.
func NewPublicClient(cfg config.ExchangeSourceConfig) *PublicClient {
	return &PublicClient{
		cfg:  cfg,
		http: fetch.NewClient(time.Duration(cfg.TimeoutSeconds) * time.Second),
		log:  logger.GetLogger(),
	}
}

type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// CurrentPrice fetches the 24h ticker for the configured pair. The ticker
// endpoint carries no timestamp, so the adapter's own fetch time is used.
func (c *PublicClient) CurrentPrice(ctx context.Context) *models.CryptoRate {
	logger.RecordFetch("exchange_public")
	log := c.log.WithComponent("binance_public").WithFields(logger.Fields{"symbol": c.cfg.Symbol})

	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.cfg.BaseURL, c.cfg.Symbol)
	body, err := fetch.Get(ctx, c.http, endpoint)
	if err != nil {
		logger.RecordSoftFail("exchange_public")
		log.WithError(err).Warn("failed to fetch ticker")
		return nil
	}

	var t ticker24h
	if err := json.Unmarshal(body, &t); err != nil {
		logger.RecordSoftFail("exchange_public")
		log.WithError(err).Warn("failed to decode ticker payload")
		return nil
	}

	price, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		logger.RecordSoftFail("exchange_public")
		log.WithError(err).Warn("ticker carries no usable price")
		return nil
	}
	change, _ := decimal.NewFromString(t.PriceChange)
	changePct, _ := decimal.NewFromString(t.PriceChangePercent)

	return &models.CryptoRate{
		Price:            price,
		Timestamp:        time.Now().UnixMilli(),
		Change24h:        change,
		ChangePercent24h: changePct,
	}
}

// PriceHistory fetches the last `days` daily candles. Candles are
// fixed-position arrays: open time, open, high, low, close, volume, ... The
// upstream already orders them oldest-first, so the slice is emitted as
// received. A non-list payload (the upstream's error shape) yields an empty
// slice.
func (c *PublicClient) PriceHistory(ctx context.Context, days int) []models.CurrencyRate {
	logger.RecordFetch("exchange_public")
	log := c.log.WithComponent("binance_public").WithFields(logger.Fields{
		"symbol": c.cfg.Symbol,
		"days":   days,
	})

	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1d&limit=%d", c.cfg.BaseURL, c.cfg.Symbol, days)
	body, err := fetch.Get(ctx, c.http, endpoint)
	if err != nil {
		logger.RecordSoftFail("exchange_public")
		log.WithError(err).Warn("failed to fetch candles")
		return []models.CurrencyRate{}
	}

	var candles [][]interface{}
	if err := json.Unmarshal(body, &candles); err != nil {
		logger.RecordSoftFail("exchange_public")
		log.WithError(err).Warn("candle payload is not a list")
		return []models.CurrencyRate{}
	}

	rates := make([]models.CurrencyRate, 0, len(candles))
	for _, candle := range candles {
		rate, ok := convertCandle(candle)
		if !ok {
			log.Debug("skipping malformed candle")
			continue
		}
		rates = append(rates, rate)
	}
	return rates
}

func convertCandle(candle []interface{}) (models.CurrencyRate, bool) {
	if len(candle) < 6 {
		return models.CurrencyRate{}, false
	}

	openTime, ok := candle[0].(float64)
	if !ok {
		return models.CurrencyRate{}, false
	}
	openStr, ok := candle[1].(string)
	if !ok {
		return models.CurrencyRate{}, false
	}
	closeStr, ok := candle[4].(string)
	if !ok {
		return models.CurrencyRate{}, false
	}

	open, err := decimal.NewFromString(openStr)
	if err != nil {
		return models.CurrencyRate{}, false
	}
	closePrice, err := decimal.NewFromString(closeStr)
	if err != nil {
		return models.CurrencyRate{}, false
	}

	change := closePrice.Sub(open)
	changePercent := decimal.Decimal{}
	if !open.IsZero() {
		changePercent = change.Div(open).Mul(decimal.NewFromInt(100))
	}

	return models.CurrencyRate{
		Value:         closePrice,
		Date:          time.UnixMilli(int64(openTime)).UTC().Format("2006-01-02"),
		Change:        change,
		ChangePercent: changePercent,
	}, true
}
