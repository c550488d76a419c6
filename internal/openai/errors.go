package openai

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure for retry decisions.
type Kind int

const (
	KindAPI Kind = iota
	KindRateLimit
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindConnection:
		return "connection"
	default:
		return "api"
	}
}

// ErrEmptyResponse is returned when a completion carries no content.
var ErrEmptyResponse = errors.New("empty response from model")

// Error is a failed call to the OpenAI API.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai %s error (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("openai %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsRateLimit reports whether err is a rate-limit (HTTP 429) failure.
func IsRateLimit(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRateLimit
}

// IsConnection reports whether err is a transport failure or timeout.
func IsConnection(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConnection
}

// IsAPI reports whether err is any other API failure.
func IsAPI(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAPI
}
