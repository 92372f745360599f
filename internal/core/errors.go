package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeMalformed      = "malformed_message"
	ErrCodeUnknownEvent   = "unknown_event"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotParticipant = "not_participant"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInternal       = "internal_error"
)

var (
	// ErrMalformedMessage marks a message missing kind-specific fields.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrSignalForbidden is returned when the signal policy denies a sender/target pair.
	ErrSignalForbidden = errors.New("signaling not allowed")
	// ErrNotParticipant is returned when a user is not part of a conversation.
	ErrNotParticipant = errors.New("not a conversation participant")
	// ErrRateLimited is returned when a connection exceeds its inbound budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrShuttingDown is returned when a connection attaches after shutdown began.
	ErrShuttingDown = errors.New("server shutting down")
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

// ToCoreError maps an error returned by the core to its wire representation.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrMalformedMessage):
		return coreError(ErrCodeMalformed, err.Error())
	case errors.Is(err, ErrSignalForbidden):
		return coreError(ErrCodeForbidden, err.Error())
	case errors.Is(err, ErrNotParticipant):
		return coreError(ErrCodeNotParticipant, err.Error())
	case errors.Is(err, ErrRateLimited):
		return coreError(ErrCodeRateLimited, err.Error())
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}
