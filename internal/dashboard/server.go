package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finflow/config"
	"finflow/internal/models"
	binance "finflow/internal/source/binance"
	"finflow/internal/summary"
	"finflow/logger"
)

// BankAPI is the slice of the central bank client the dashboard serves.
type BankAPI interface {
	CurrentRate(ctx context.Context, code string) *models.CurrencyRate
	RateOnDate(ctx context.Context, code string, date time.Time) *decimal.Decimal
	HistoricalSeries(ctx context.Context, code string, days int) []models.CurrencyRate
	CurrentKeyRate(ctx context.Context) *models.KeyRate
	KeyRateHistory(ctx context.Context, maxRecords int) []models.KeyRate
}

// MarketAPI is the public half of the exchange client.
type MarketAPI interface {
	CurrentPrice(ctx context.Context) *models.CryptoRate
	PriceHistory(ctx context.Context, days int) []models.CurrencyRate
}

// PoolAPI is the mining pool client surface.
type PoolAPI interface {
	Stats(ctx context.Context, wallet string) *models.MiningStats
}

// Summarizer produces the combined snapshot for /api/summary and the
// websocket push.
type Summarizer interface {
	Collect(ctx context.Context) summary.Summary
}

// Server hosts the JSON API over the source adapters. It is the HTTP-facing
// boundary: request parameter parsing, recvWindow clamping and error-to-status
// mapping live here, never in the adapters.
type Server struct {
	cfg        config.Config
	log        *logger.Log
	bank       BankAPI
	market     MarketAPI
	orders     *binance.SignedClient
	pool       PoolAPI
	summarizer Summarizer
	hub        *hub
	httpServer *http.Server
}

// NewServer constructs the dashboard server. When the dashboard feature is
// disabled the returned server is nil and Run becomes a no-op.
func NewServer(cfg config.Config, bank BankAPI, market MarketAPI, orders *binance.SignedClient, pool PoolAPI, summarizer Summarizer) *Server {
	if !cfg.Dashboard.Enabled {
		return nil
	}
	return &Server{
		cfg:        cfg,
		log:        logger.GetLogger(),
		bank:       bank,
		market:     market,
		orders:     orders,
		pool:       pool,
		summarizer: summarizer,
		hub:        newHub(),
	}
}

// Run starts the HTTP server and the websocket broadcast loop, blocking
// until the context is cancelled or the server fails.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	go s.runBroadcast(ctx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Dashboard.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("dashboard").WithFields(logger.Fields{
		"address": s.cfg.Dashboard.Address,
	}).Info("dashboard server started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	api := router.Group("/api")
	api.GET("/rates/current", s.handleCurrentRate)
	api.GET("/rates/on-date", s.handleRateOnDate)
	api.GET("/rates/history", s.handleRateHistory)
	api.GET("/keyrate", s.handleKeyRate)
	api.GET("/keyrate/history", s.handleKeyRateHistory)
	api.GET("/crypto/price", s.handleCryptoPrice)
	api.GET("/crypto/history", s.handleCryptoHistory)
	api.GET("/mining", s.handleMining)
	api.GET("/orders/open", s.handleOpenOrders)
	api.GET("/orders/:id", s.handleOrder)
	api.GET("/summary", s.handleSummary)

	router.GET("/ws", s.hub.handle)

	return router, nil
}

func (s *Server) currencyCode(c *gin.Context) string {
	if code := c.Query("code"); code != "" {
		return code
	}
	return s.cfg.Source.Bank.Currency
}

func intQuery(c *gin.Context, name string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clampRecvWindow bounds a caller-supplied validity window to the range the
// exchange accepts. The signed client itself sends whatever it is given; the
// clamp belongs to this boundary.
func clampRecvWindow(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	if v < 1000 {
		return 1000
	}
	if v > 60000 {
		return 60000
	}
	return v
}

func (s *Server) signedClient(c *gin.Context) *binance.SignedClient {
	window := clampRecvWindow(c.Query("recvWindow"), s.cfg.Source.Exchange.RecvWindowMs)
	return s.orders.WithRecvWindow(window)
}

// writeSignedError maps the signed adapter's error taxonomy onto HTTP
// statuses: missing credentials are an operator problem, upstream rejections
// a gateway one.
func writeSignedError(c *gin.Context, err error) {
	var apiErr *binance.APIError
	switch {
	case errors.Is(err, binance.ErrNoCredentials):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message, "code": apiErr.Code})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleCurrentRate(c *gin.Context) {
	rate := s.bank.CurrentRate(c.Request.Context(), s.currencyCode(c))
	c.JSON(http.StatusOK, gin.H{"rate": rate})
}

func (s *Server) handleRateOnDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	value := s.bank.RateOnDate(c.Request.Context(), s.currencyCode(c), date)
	c.JSON(http.StatusOK, gin.H{"value": value})
}

func (s *Server) handleRateHistory(c *gin.Context) {
	days := intQuery(c, "days", 30, 1, 365)
	series := s.bank.HistoricalSeries(c.Request.Context(), s.currencyCode(c), days)
	c.JSON(http.StatusOK, gin.H{"rates": series})
}

func (s *Server) handleKeyRate(c *gin.Context) {
	rate := s.bank.CurrentKeyRate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"keyRate": rate})
}

func (s *Server) handleKeyRateHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 10, 1, 100)
	history := s.bank.KeyRateHistory(c.Request.Context(), limit)
	c.JSON(http.StatusOK, gin.H{"keyRates": history})
}

func (s *Server) handleCryptoPrice(c *gin.Context) {
	rate := s.market.CurrentPrice(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"rate": rate})
}

func (s *Server) handleCryptoHistory(c *gin.Context) {
	days := intQuery(c, "days", 30, 1, 365)
	history := s.market.PriceHistory(c.Request.Context(), days)
	c.JSON(http.StatusOK, gin.H{"rates": history})
}

func (s *Server) handleMining(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		wallet = s.cfg.Source.Pool.Wallet
	}
	stats := s.pool.Stats(c.Request.Context(), wallet)
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleOpenOrders(c *gin.Context) {
	orders, err := s.signedClient(c).OpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		writeSignedError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleOrder(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		symbol = s.cfg.Source.Exchange.Symbol
	}
	order, err := s.signedClient(c).Order(c.Request.Context(), symbol, c.Param("id"))
	if err != nil {
		writeSignedError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.summarizer.Collect(c.Request.Context()))
}

func (s *Server) runBroadcast(ctx context.Context) {
	interval := time.Duration(s.cfg.Dashboard.RefreshIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.hub.closeAll()
			return
		case <-ticker.C:
			if s.hub.empty() {
				continue
			}
			s.hub.broadcast(s.summarizer.Collect(ctx))
		}
	}
}
