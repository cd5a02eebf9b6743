package shopify

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates required client configuration is missing.
	ErrConfig = errors.New("shopify: missing configuration")

	// ErrInvalidResource indicates a resource outside the allow-list.
	ErrInvalidResource = errors.New("shopify: invalid resource")

	// ErrRateLimited indicates HTTP 429 persisted past the retry budget.
	ErrRateLimited = errors.New("shopify: rate limit exceeded")

	// ErrNetwork indicates a transport-level failure (DNS, connection,
	// timeout). Network failures are not retried.
	ErrNetwork = errors.New("shopify: network error")
)

// HTTPError is returned for any non-2xx response other than 429.
// It carries the upstream status and response body for diagnostics.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("shopify: HTTP %d: %s", e.StatusCode, e.Status)
}
