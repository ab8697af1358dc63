package earthengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// APIError is a non-200 response from Earth Engine.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

// Error returns the backend message unchanged.
func (e *APIError) Error() string {
	return e.Message
}

// IsClientError reports whether the request itself was rejected, as opposed
// to the service failing.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = fmt.Sprintf("Earth Engine returned status %d: %s", statusCode, string(body))
	return apiErr
}

// countsAsSuccess decides whether err should leave the breaker's failure
// count untouched. Rejected requests and caller cancellations are not
// service failures.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsClientError()
	}
	return errors.Is(err, context.Canceled)
}
