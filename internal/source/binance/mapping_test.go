package binance

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finflow/internal/models"
)

const orderJSON = `{
	"symbol": "BTCUSDT",
	"orderId": 12345,
	"clientOrderId": "web_abc",
	"price": "42000.50",
	"origQty": "1.00000000",
	"executedQty": "0.50000000",
	"cummulativeQuoteQty": "21000.25",
	"status": "PARTIALLY_FILLED",
	"timeInForce": "GTC",
	"type": "LIMIT",
	"side": "BUY",
	"time": 1700000000000,
	"updateTime": 1700000001000,
	"isWorking": true
}`

func mustMapOrder(t *testing.T, raw []byte) models.SpotOrder {
	t.Helper()
	m, err := unwrapObject(raw)
	if err != nil {
		t.Fatalf("unwrapObject failed: %v", err)
	}
	order, err := mapOrder(m)
	if err != nil {
		t.Fatalf("mapOrder failed: %v", err)
	}
	return order
}

func TestUnwrapShapesProduceIdenticalOrder(t *testing.T) {
	shapes := map[string]string{
		"bare":    orderJSON,
		"wrapped": fmt.Sprintf(`{"data": %s}`, orderJSON),
		"array":   fmt.Sprintf(`[%s]`, orderJSON),
	}

	var reference *models.SpotOrder
	for name, payload := range shapes {
		order := mustMapOrder(t, []byte(payload))
		if reference == nil {
			ref := order
			reference = &ref
			continue
		}
		if !reflect.DeepEqual(order, *reference) {
			t.Errorf("shape %q produced a different order: %+v vs %+v", name, order, *reference)
		}
	}

	if reference.OrderID != "12345" {
		t.Errorf("orderId = %s, want 12345", reference.OrderID)
	}
	if !reference.Price.Equal(decimal.RequireFromString("42000.50")) {
		t.Errorf("price = %s", reference.Price)
	}
	if reference.Status != models.OrderStatusPartiallyFilled {
		t.Errorf("status = %s", reference.Status)
	}
	if !reference.IsWorking {
		t.Error("isWorking not mapped")
	}
}

func TestMapOrderAlternateIDKeys(t *testing.T) {
	cases := []string{
		`{"id": "987", "symbol": "BTCUSDT"}`,
		`{"order_id": "987", "symbol": "BTCUSDT"}`,
		`{"orderNo": "987", "symbol": "BTCUSDT"}`,
	}
	for _, payload := range cases {
		order := mustMapOrder(t, []byte(payload))
		if order.OrderID != "987" {
			t.Errorf("payload %s: orderId = %s, want 987", payload, order.OrderID)
		}
	}
}

func TestMapOrderClientIDOnly(t *testing.T) {
	order := mustMapOrder(t, []byte(`{"clientOid": "my-client-id", "symbol": "BTCUSDT"}`))
	if order.ClientOrderID != "my-client-id" {
		t.Errorf("clientOrderId = %s", order.ClientOrderID)
	}
	if order.OrderID != "" {
		t.Errorf("orderId should be empty, got %s", order.OrderID)
	}
}

func TestMapOrderMissingAllIDs(t *testing.T) {
	m, err := unwrapObject([]byte(`{"symbol": "BTCUSDT", "price": "1.0", "weird": true}`))
	if err != nil {
		t.Fatalf("unwrapObject failed: %v", err)
	}
	_, err = mapOrder(m)
	if err == nil {
		t.Fatal("expected error for payload without id fields")
	}
	// The error names the keys that were present to aid schema drift debugging.
	for _, key := range []string{"symbol", "price", "weird"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name present key %q", err, key)
		}
	}
}

func TestMapOrderUnknownStatus(t *testing.T) {
	order := mustMapOrder(t, []byte(`{"orderId": 1, "status": "PENDING_CANCEL"}`))
	if order.Status != models.OrderStatusUnknown {
		t.Errorf("status = %s, want UNKNOWN", order.Status)
	}
}

func TestUnwrapObjectRejectsScalars(t *testing.T) {
	if _, err := unwrapObject([]byte(`"just a string"`)); err == nil {
		t.Error("expected error for scalar payload")
	}
	if _, err := unwrapObject([]byte(`[]`)); err == nil {
		t.Error("expected error for empty array payload")
	}
}

func TestUnwrapList(t *testing.T) {
	wrapped := fmt.Sprintf(`{"data": [%s, %s]}`, orderJSON, orderJSON)
	items, err := unwrapList([]byte(wrapped))
	if err != nil {
		t.Fatalf("unwrapList failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}

	if _, err := unwrapList([]byte(`{"msg": "no list here"}`)); err == nil {
		t.Error("expected error for non-list payload")
	}
}
