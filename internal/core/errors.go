package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInvalidIdentity = "invalid_identity"
	ErrCodeInvalidRoom     = "invalid_room"
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeForbidden       = "forbidden"
)

var (
	ErrInvalidIdentity = errors.New("identity is required")
	ErrInvalidRoom     = errors.New("room key is required")
	ErrClientGone      = errors.New("client disconnected")
	ErrHubClosed       = errors.New("hub closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ErrorEvent builds an error notification addressed to a single client.
func ErrorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
