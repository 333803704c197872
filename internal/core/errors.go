package core

import "errors"

// Error codes for protocol-level errors sent back to a connection.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnknownEvent = "unknown_event"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrHubStopped   = errors.New("hub stopped")
	ErrNotRelayable = errors.New("event kind is not relayable")
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

// UnknownEventError reports an inbound event name the relay does not handle.
func UnknownEventError(name string) *CoreError {
	return coreError(ErrCodeUnknownEvent, "unknown event: "+name)
}
