package clients

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrMissingCredentials is returned when base URL, key or secret is empty
	ErrMissingCredentials = errors.New("missing required fields")
	// ErrInvalidBaseURL is returned when the base URL cannot be parsed
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// RemoteAPIError is returned for any non-success response or transport
// failure. StatusCode is 0 for transport failures.
type RemoteAPIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *RemoteAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("woocommerce api request failed: %v", e.Err)
	}
	return fmt.Sprintf("woocommerce api error: %d - %s", e.StatusCode, e.Body)
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a caller-side retry could succeed
func (e *RemoteAPIError) IsRetryable() bool {
	switch e.StatusCode {
	case 0, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return e.StatusCode >= 500
}

// AsRemoteAPIError unwraps err into a RemoteAPIError when possible
func AsRemoteAPIError(err error) (*RemoteAPIError, bool) {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ParseRetryAfter reads a Retry-After header value in seconds or HTTP-date form
func ParseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
