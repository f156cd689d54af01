package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindHTTP         Kind = "http"
	KindDecode       Kind = "decode"
)

// Error is the single error type returned by Client methods.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Op      string // client operation, e.g. "create post"
	Message string // human readable, safe to show inline
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a client-side validation failure.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthorized builds a client-side authorization failure.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsUnauthorized reports whether err is a 401/403-class failure.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func statusKind(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindHTTP
	}
}

const maxErrorBody = 64 << 10

// errorFromResponse reads a non-2xx response. JSON bodies contribute their
// "message" (or "error") field. Plain text bodies are used as-is only for
// endpoints that answer in text.
func errorFromResponse(op string, resp *http.Response, textBody bool) *Error {
	e := &Error{Kind: statusKind(resp.StatusCode), Status: resp.StatusCode, Op: op}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))
	if err == nil && body != "" {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if jsonErr := json.Unmarshal([]byte(body), &payload); jsonErr == nil {
			e.Message = firstNonEmpty(payload.Message, payload.Error)
		} else if textBody {
			e.Message = body
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP error, status %d", resp.StatusCode)
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
