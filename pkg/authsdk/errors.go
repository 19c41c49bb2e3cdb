package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed Bookly API response.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Message is the human-readable message from the envelope
	Message string

	// Detail is the raw "error" member of the envelope, if any
	Detail json.RawMessage
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("bookly: %d %s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool { return StatusOf(err) == http.StatusConflict }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not an envelope still yield an error carrying the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Detail:     env.Error,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
