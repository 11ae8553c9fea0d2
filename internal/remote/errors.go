package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// HTTPError is returned when the service answers with a non-2xx status.
type HTTPError struct {
	Op      string
	Status  int
	Message string // detail extracted from the response body, if any
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Op, e.Status, e.Message)
}

// NetworkError is returned when the request never produced an HTTP response:
// connection failures, timeouts, cancellation, or a body cut off mid-read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a 2xx body fails to parse or validate.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// maxErrorBody bounds how much of an error response is kept as detail.
const maxErrorBody = 4 << 10

// maxDetailRunes bounds a plain-text detail; longer bodies are cut on a rune boundary.
const maxDetailRunes = 200

// errorDetail extracts a human-readable message from an error response body.
// FastAPI-style {"detail": ...} and {"error": ...} bodies are unwrapped;
// anything else is returned trimmed.
func errorDetail(body []byte) string {
	var wire struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		if len(wire.Detail) > 0 {
			var s string
			if json.Unmarshal(wire.Detail, &s) == nil {
				return s
			}
			return strings.TrimSpace(string(wire.Detail))
		}
		if wire.Error != "" {
			return wire.Error
		}
		if wire.Message != "" {
			return wire.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(msg) > maxDetailRunes {
		msg = string([]rune(msg)[:maxDetailRunes]) + "..."
	}
	return msg
}
