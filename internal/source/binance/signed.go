package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"finflow/config"
	"finflow/internal/fetch"
	"finflow/internal/models"
	"finflow/logger"
)

var numericID = regexp.MustCompile(`^\d+$`)

// SignedClient performs authenticated reads against the private order API.
// Unlike the soft-fail sources, every operation here returns an explicit
// error: an authentication failure must never be mistaken for "no data yet".
type SignedClient struct {
	cfg  config.ExchangeSourceConfig
	http *http.Client
	log  *logger.Log
}

// NewSignedClient constructs a signed API client. Credentials are validated
// lazily, before the first network call of each operation.
func NewSignedClient(cfg config.ExchangeSourceConfig) *SignedClient {
	return &SignedClient{
		cfg:  cfg,
		http: fetch.NewClient(time.Duration(cfg.TimeoutSeconds) * time.Second),
		log:  logger.GetLogger(),
	}
}

// WithRecvWindow derives a client that signs requests with the given
// validity window. Clamping the caller-supplied value to the range the
// exchange accepts is the HTTP boundary's job, not this client's.
func (c *SignedClient) WithRecvWindow(ms int64) *SignedClient {
	derived := *c
	derived.cfg.RecvWindowMs = ms
	return &derived
}

// param is one query parameter. Parameters are kept as an ordered slice:
// the signature is computed over the query string exactly as constructed,
// never alphabetically re-sorted.
type param struct {
	key   string
	value string
}

func canonicalQuery(params []param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.key+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

func sign(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *SignedClient) recvWindow() int64 {
	if c.cfg.RecvWindowMs > 0 {
		return c.cfg.RecvWindowMs
	}
	return 60000
}

// isClockSkew reports whether an upstream rejection indicates the request
// timestamp fell outside the recvWindow. The check is a message-content
// match by necessity: the upstream signals this case only through its error
// text, so this classification must not be generalised to other sources.
func isClockSkew(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "recvwindow") || strings.Contains(m, "timestamp")
}

// serverTime fetches the exchange's authoritative clock (ms epoch) from the
// unauthenticated time endpoint.
func (c *SignedClient) serverTime(ctx context.Context) (int64, error) {
	body, err := fetch.Get(ctx, c.http, c.cfg.BaseURL+"/api/v3/time")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch server time: %w", err)
	}
	var payload struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode server time: %w", err)
	}
	return payload.ServerTime, nil
}

func (c *SignedClient) doSigned(ctx context.Context, path string, params []param, timestamp int64) ([]byte, error) {
	signed := make([]param, 0, len(params)+2)
	signed = append(signed, params...)
	signed = append(signed,
		param{"recvWindow", strconv.FormatInt(c.recvWindow(), 10)},
		param{"timestamp", strconv.FormatInt(timestamp, 10)},
	)

	query := canonicalQuery(signed)
	query += "&signature=" + sign(c.cfg.APISecret, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build signed request: %w", err)
	}
	// The key travels in a header, never in the query.
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	reqID := uuid.NewString()
	log := c.log.WithComponent("binance_signed").WithFields(logger.Fields{
		"path":       path,
		"request_id": reqID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("signed request transport failure")
		return nil, fmt.Errorf("signed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signed response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code int64  `json:"code"`
			Msg  string `json:"msg"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Msg != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Msg
		} else {
			apiErr.Message = fmt.Sprintf("HTTP %s", resp.Status)
		}
		log.WithFields(logger.Fields{"status": resp.StatusCode, "upstream": apiErr.Message}).Warn("signed request rejected")
		return nil, apiErr
	}

	return body, nil
}

// signedGet runs the two-attempt flow: sign with the local clock, and if the
// upstream rejects the timestamp as outside the recvWindow, re-sign exactly
// once with the server's own time. Any other failure, or a failure of the
// retry, surfaces to the caller.
func (c *SignedClient) signedGet(ctx context.Context, path string, params []param) ([]byte, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, ErrNoCredentials
	}

	body, err := c.doSigned(ctx, path, params, time.Now().UnixMilli())
	if err == nil {
		return body, nil
	}

	apiErr, ok := err.(*APIError)
	if !ok || !isClockSkew(apiErr.Message) {
		return nil, err
	}

	serverTS, timeErr := c.serverTime(ctx)
	if timeErr != nil {
		return nil, fmt.Errorf("clock skew detected but server time unavailable: %w", timeErr)
	}

	c.log.WithComponent("binance_signed").WithFields(logger.Fields{
		"path":        path,
		"server_time": serverTS,
	}).Info("retrying signed request with server time")

	return c.doSigned(ctx, path, params, serverTS)
}

// Order looks up a single spot order. A purely numeric id is dispatched as an
// exchange order id, anything else as a client order id.
func (c *SignedClient) Order(ctx context.Context, symbol, id string) (models.SpotOrder, error) {
	symbol = strings.TrimSpace(symbol)
	id = strings.TrimSpace(id)
	if symbol == "" {
		return models.SpotOrder{}, fmt.Errorf("symbol is required")
	}
	if id == "" {
		return models.SpotOrder{}, fmt.Errorf("order id is required")
	}

	params := []param{{"symbol", symbol}}
	if numericID.MatchString(id) {
		params = append(params, param{"orderId", id})
	} else {
		params = append(params, param{"origClientOrderId", id})
	}

	body, err := c.signedGet(ctx, "/api/v3/order", params)
	if err != nil {
		return models.SpotOrder{}, err
	}

	raw, err := unwrapObject(body)
	if err != nil {
		return models.SpotOrder{}, err
	}
	return mapOrder(raw)
}

// OpenOrders lists open spot orders, optionally filtered by symbol, sorted
// descending by last update time regardless of upstream order.
func (c *SignedClient) OpenOrders(ctx context.Context, symbol string) ([]models.SpotOrder, error) {
	var params []param
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		params = append(params, param{"symbol", symbol})
	}

	body, err := c.signedGet(ctx, "/api/v3/openOrders", params)
	if err != nil {
		return nil, err
	}

	items, err := unwrapList(body)
	if err != nil {
		return nil, err
	}

	orders := make([]models.SpotOrder, 0, len(items))
	for _, item := range items {
		order, err := mapOrder(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].UpdateTime > orders[j].UpdateTime })
	return orders, nil
}
