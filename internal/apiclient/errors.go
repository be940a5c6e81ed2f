package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCSRFTokenMissing is returned when the CSRF endpoint answers without a token.
var ErrCSRFTokenMissing = errors.New("apiclient: csrf token missing from response")

// HTTPError is a non-2xx response normalized to {status, error, data}.
type HTTPError struct {
	Status     int
	StatusText string
	// Data is the response body. Non-JSON bodies are carried as a JSON string.
	Data json.RawMessage
}

func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("http %d %s: %s", e.Status, e.StatusText, msg)
	}
	return fmt.Sprintf("http %d %s", e.Status, e.StatusText)
}

// Message returns data.message (or data.detail) when the body is a JSON object.
func (e *HTTPError) Message() string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(e.Data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Detail
}

// Decode unmarshals the error body into v.
func (e *HTTPError) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// CSRFError reports that no CSRF token could be obtained. The main request
// is never sent when this is returned.
type CSRFError struct {
	Err error
}

func (e *CSRFError) Error() string {
	return fmt.Sprintf("fetch csrf token: %v", e.Err)
}

func (e *CSRFError) Unwrap() error {
	return e.Err
}
