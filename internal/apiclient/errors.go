package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind string

// Kind constants.
const (
	KindTransport    Kind = "transport"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
)

// User-facing messages.
const (
	MsgConnectivity   = "Unable to reach the server. Check your connection and try again."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgServerError    = "Server error. Please try again later."
	MsgCanceled       = "Request canceled."
)

// Error is returned for every failed request. It is the only place where
// HTTP status codes are interpreted; callers branch on Kind at most.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err did not come from the client.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// classify maps a non-2xx response onto an Error. A 401 is only treated as
// session expiry when the request carried a token.
func classify(status int, body []byte, hadToken bool) *Error {
	msg := serverMessage(body)

	switch {
	case status == http.StatusUnauthorized && hadToken:
		return &Error{Kind: KindUnauthorized, Status: status, Message: MsgSessionExpired}
	case status >= 400 && status < 500:
		if msg == "" {
			msg = http.StatusText(status)
		}
		if msg == "" {
			msg = MsgServerError
		}
		return &Error{Kind: KindValidation, Status: status, Message: msg}
	default:
		if msg == "" {
			msg = MsgServerError
		}
		return &Error{Kind: KindServer, Status: status, Message: msg}
	}
}

// serverMessage extracts error, message, detail or title from a JSON body.
func serverMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"error", "message", "detail", "title"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		// {"error": {"message": "..."}}
		if nested := serverMessage(raw); nested != "" {
			return nested
		}
	}
	return ""
}
