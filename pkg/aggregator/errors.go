package aggregator

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrChainNotSupported is returned for chains without an aggregator mapping
	ErrChainNotSupported = errors.New("chain not supported")
	// ErrMissingParam is returned when a required request parameter is empty
	ErrMissingParam = errors.New("missing required parameter")
)

// ConfigError reports a request that could not be built. No network call was made.
type ConfigError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer from the aggregator
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when retried
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func unsupportedChain(op string, chainID int64) error {
	return &ConfigError{
		Op:     op,
		Reason: fmt.Sprintf("chain %d not supported", chainID),
		Err:    ErrChainNotSupported,
	}
}

func missingParam(op, name string) error {
	return &ConfigError{
		Op:     op,
		Reason: fmt.Sprintf("%s is required", name),
		Err:    ErrMissingParam,
	}
}

// retryable accepts transport failures and temporary API errors
func retryable(err error) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return true
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
