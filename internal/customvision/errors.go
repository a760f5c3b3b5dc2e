package customvision

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a prediction request whose host, path or headers are unusable.
var ErrInvalidRequest = errors.New("invalid prediction request")

// Payload stages reported by MalformedPayloadError.
const (
	StageRequest  = "request"
	StageResponse = "response"
)

// ConnectivityError reports a DNS, TLS, socket or timeout failure before a response arrived.
type ConnectivityError struct {
	Host string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Host, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// APIError reports a non-2xx answer from the prediction service.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction api status %d: %s", e.StatusCode, bodySnippet(e.Body))
}

// MalformedPayloadError reports invalid JSON in the outgoing body or the service response.
type MalformedPayloadError struct {
	Stage string
	Err   error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Stage, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func bodySnippet(body []byte) string {
	const maxLen = 512
	if len(body) == 0 {
		return "<empty>"
	}
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
