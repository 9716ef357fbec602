package models

import "github.com/shopspring/decimal"

// Order statuses recognised on the spot order API. Anything else maps to
// OrderStatusUnknown rather than failing the decode.
const (
	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
	OrderStatusRejected        = "REJECTED"
	OrderStatusExpired         = "EXPIRED"
	OrderStatusUnknown         = "UNKNOWN"
)

var knownOrderStatuses = map[string]struct{}{
	OrderStatusNew:             {},
	OrderStatusPartiallyFilled: {},
	OrderStatusFilled:          {},
	OrderStatusCanceled:        {},
	OrderStatusRejected:        {},
	OrderStatusExpired:         {},
}

// NormalizeOrderStatus maps an upstream status string onto the fixed status
// set, passing unrecognised values through as OrderStatusUnknown.
func NormalizeOrderStatus(status string) string {
	if _, ok := knownOrderStatuses[status]; ok {
		return status
	}
	return OrderStatusUnknown
}

// SpotOrder is a normalised view of one spot order as reported by the signed
// exchange API. Time and UpdateTime are milliseconds since epoch.
type SpotOrder struct {
	Symbol              string          `json:"symbol"`
	OrderID             string          `json:"orderId"`
	ClientOrderID       string          `json:"clientOrderId"`
	Price               decimal.Decimal `json:"price"`
	OrigQty             decimal.Decimal `json:"origQty"`
	ExecutedQty         decimal.Decimal `json:"executedQty"`
	CummulativeQuoteQty decimal.Decimal `json:"cummulativeQuoteQty"`
	Status              string          `json:"status"`
	Type                string          `json:"type"`
	Side                string          `json:"side"`
	TimeInForce         string          `json:"timeInForce"`
	IsWorking           bool            `json:"isWorking"`
	Time                int64           `json:"time"`
	UpdateTime          int64           `json:"updateTime"`
}
