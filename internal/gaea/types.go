package gaea

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRemoteRejected is returned when the remote service answers 2xx but the
// envelope's success flag is false.
var ErrRemoteRejected = errors.New("remote service rejected request")

// Envelope is the response wrapper used by every remote endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Msg     string          `json:"msg,omitempty"`
}

// PingRequest is the keepalive request body.
type PingRequest struct {
	UID       string `json:"uid"`
	BrowserID string `json:"browser_id"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Credentials carries the per-account fields needed to authenticate a
// remote call and, optionally, route it through a proxy.
type Credentials struct {
	UID       string
	BrowserID string
	Token     string
	Proxy     string
}

// HTTPError represents a non-2xx response from the remote service.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Message)
}
