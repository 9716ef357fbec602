package binance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finflow/internal/models"
)

// The order endpoints have drifted across API versions: the same logical
// payload may arrive as a bare object, wrapped in {"data": ...}, or as a
// single-element array, and individual fields go by several historical
// names. Decoding therefore happens in two steps: unwrap the raw value down
// to generic maps, then map each logical field through an ordered list of
// candidate keys.

func unwrapObject(raw []byte) (map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode order payload: %w", err)
	}
	switch val := v.(type) {
	case map[string]interface{}:
		if inner, ok := val["data"].(map[string]interface{}); ok {
			return inner, nil
		}
		return val, nil
	case []interface{}:
		if len(val) > 0 {
			if inner, ok := val[0].(map[string]interface{}); ok {
				return inner, nil
			}
		}
	}
	return nil, fmt.Errorf("unexpected order payload shape")
}

func unwrapList(raw []byte) ([]map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode order list payload: %w", err)
	}
	if m, ok := v.(map[string]interface{}); ok {
		if inner, ok := m["data"]; ok {
			v = inner
		}
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected order list payload shape")
	}
	items := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items, nil
}

// pickString returns the first present candidate key rendered as a string.
func pickString(m map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val, true
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(val), true
		}
	}
	return "", false
}

func pickDecimal(m map[string]interface{}, keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if d, err := decimal.NewFromString(val); err == nil {
				return d
			}
		case float64:
			return decimal.NewFromFloat(val)
		}
	}
	return decimal.Decimal{}
}

func pickInt64(m map[string]interface{}, keys ...string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return int64(val)
		case string:
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func pickBool(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k].(bool); ok {
			return v
		}
	}
	return false
}

func mapOrder(m map[string]interface{}) (models.SpotOrder, error) {
	orderID, _ := pickString(m, "orderId", "id", "order_id", "orderNo")
	clientID, _ := pickString(m, "clientOrderId", "origClientOrderId", "client_order_id", "clientOid")

	if orderID == "" && clientID == "" {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return models.SpotOrder{}, fmt.Errorf(
			"order payload has no recognized id field; present keys: %s", strings.Join(keys, ", "))
	}

	symbol, _ := pickString(m, "symbol", "pair")
	status, _ := pickString(m, "status", "state")
	orderType, _ := pickString(m, "type", "orderType")
	side, _ := pickString(m, "side")
	tif, _ := pickString(m, "timeInForce", "time_in_force")

	return models.SpotOrder{
		Symbol:              symbol,
		OrderID:             orderID,
		ClientOrderID:       clientID,
		Price:               pickDecimal(m, "price"),
		OrigQty:             pickDecimal(m, "origQty", "origQuantity", "qty"),
		ExecutedQty:         pickDecimal(m, "executedQty", "executed_qty", "dealSize"),
		CummulativeQuoteQty: pickDecimal(m, "cummulativeQuoteQty", "cumQuote", "dealFunds"),
		Status:              models.NormalizeOrderStatus(status),
		Type:                orderType,
		Side:                side,
		TimeInForce:         tif,
		IsWorking:           pickBool(m, "isWorking"),
		Time:                pickInt64(m, "time", "transactTime", "createTime", "createdAt"),
		UpdateTime:          pickInt64(m, "updateTime", "updatedAt", "time"),
	}, nil
}
