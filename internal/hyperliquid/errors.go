package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError represents a non-2xx response from the Hyperliquid API
type APIError struct {
	HTTPStatus int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, e.Message)
}

// IsRetryable determines if this error should trigger a retry
func (e *APIError) IsRetryable() bool {
	switch e.HTTPStatus {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRateLimitError checks if this is a rate limiting error
func (e *APIError) IsRateLimitError() bool {
	return e.HTTPStatus == http.StatusTooManyRequests
}

// ParseAPIError extracts an APIError from an HTTP response
func ParseAPIError(resp *http.Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	message := strings.TrimSpace(string(body))

	// The API sometimes wraps the reason in a JSON string or {"error": "..."}
	var asString string
	if json.Unmarshal(body, &asString) == nil && asString != "" {
		message = asString
	} else {
		var asObject struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &asObject) == nil && asObject.Error != "" {
			message = asObject.Error
		}
	}

	if message == "" {
		message = "empty response"
	}

	return &APIError{HTTPStatus: resp.StatusCode, Message: message}
}

// IsRetryableError determines if an error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	return isNetworkError(err)
}

// ErrorWithContext wraps errors with operation context for better debugging
func ErrorWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"no such host",
		"timeout",
		"network unreachable",
		"connection reset",
		"eof",
	}

	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}
