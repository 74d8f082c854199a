package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error represents a failure reported by an external collaborator
// (microphone, transcription, generation or synthesis service).
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Provider   string    `json:"provider,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	RetryAfter *int      `json:"retry_after,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status: %d)", e.StatusCode)
	}
	return b.String()
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrDeviceUnavailable  ErrorType = "device_unavailable"
	ErrTimeout            ErrorType = "timeout"
	ErrServiceUnavailable ErrorType = "service_unavailable"
	ErrInvalidAudio       ErrorType = "invalid_audio"
	ErrRateLimited        ErrorType = "rate_limited"
	ErrTextTooLong        ErrorType = "text_too_long"
	ErrInvalidRequest     ErrorType = "invalid_request"
	ErrAuthentication     ErrorType = "authentication_error"
)

// NewDeviceUnavailableError creates an error for a missing or failing audio device.
func NewDeviceUnavailableError(message string, err error) *Error {
	return &Error{Type: ErrDeviceUnavailable, Message: message, Err: err}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *Error {
	return &Error{Type: ErrTimeout, Message: message}
}

// NewServiceUnavailableError creates an error for an unreachable or failing service.
func NewServiceUnavailableError(provider string, err error) *Error {
	msg := "service unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Type: ErrServiceUnavailable, Provider: provider, Message: msg, Err: err}
}

// NewInvalidAudioError creates an error for audio the service rejected.
func NewInvalidAudioError(message string) *Error {
	return &Error{Type: ErrInvalidAudio, Message: message}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(provider, message string, retryAfter int) *Error {
	return &Error{
		Type:       ErrRateLimited,
		Provider:   provider,
		Message:    message,
		RetryAfter: &retryAfter,
	}
}

// NewTextTooLongError creates an error for synthesis input over the service limit.
func NewTextTooLongError(length, limit int) *Error {
	return &Error{
		Type:    ErrTextTooLong,
		Message: fmt.Sprintf("text length %d exceeds limit %d", length, limit),
	}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{Type: ErrAuthentication, Provider: provider, Message: message}
}

// FromHTTPStatus maps an upstream HTTP failure to a typed error.
func FromHTTPStatus(provider string, status int, header http.Header, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}

	var e *Error
	switch {
	case status == http.StatusTooManyRequests:
		retry := 0
		if header != nil {
			if v, err := strconv.Atoi(header.Get("Retry-After")); err == nil {
				retry = v
			}
		}
		e = NewRateLimitError(provider, msg, retry)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = NewAuthenticationError(provider, msg)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e = &Error{Type: ErrTimeout, Provider: provider, Message: msg}
	case status == http.StatusRequestEntityTooLarge:
		e = &Error{Type: ErrTextTooLong, Provider: provider, Message: msg}
	case status >= 500:
		e = &Error{Type: ErrServiceUnavailable, Provider: provider, Message: msg}
	default:
		e = &Error{Type: ErrInvalidRequest, Provider: provider, Message: msg}
	}
	e.StatusCode = status
	return e
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimited, ErrServiceUnavailable, ErrTimeout, ErrDeviceUnavailable:
		return true
	default:
		return false
	}
}

// IsType reports whether err wraps a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
