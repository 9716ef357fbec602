package binance

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is returned before any network call when the API key or
// secret is missing. Surfacing this as an explicit error keeps a
// misconfigured deployment distinguishable from "order not found".
var ErrNoCredentials = errors.New("exchange API credentials are not configured")

// APIError carries an upstream rejection from the signed API. Message prefers
// the upstream's own error text and falls back to an HTTP-status derived one
// when the body is unparseable.
type APIError struct {
	Status  int
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange rejected request (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exchange rejected request: %s", e.Message)
}
