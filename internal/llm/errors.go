package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider failure classes.
var (
	// ErrAuth indicates rejected credentials. Fatal; never retried.
	ErrAuth = errors.New("provider authentication failed")
	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrUnavailable indicates a transient provider-side failure.
	ErrUnavailable = errors.New("provider unavailable")
)

// IsRetryable reports whether a provider error is worth retrying under
// the bounded backoff policy.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// classifyStatus maps an HTTP status code to the provider error taxonomy.
// 404 is treated as unavailable rather than fatal: providers retire model
// names, and the caller-facing behavior should match a temporary outage.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d): %s", ErrAuth, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d): %s", ErrRateLimited, status, body)
	case status == http.StatusNotFound || status >= 500:
		return fmt.Errorf("%w (status %d): %s", ErrUnavailable, status, body)
	default:
		return fmt.Errorf("provider error (status %d): %s", status, body)
	}
}
