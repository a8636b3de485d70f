package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindTimeout      Kind = "timeout"
	KindProtocol     Kind = "protocol"
	KindUnknown      Kind = "unknown"
)

// Error describes a failed provider call. Message is safe to show to end
// users; Raw holds the provider payload for internal diagnostics only.
type Error struct {
	Provider string
	Kind     Kind
	Message  string
	Raw      []byte
	err      error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// AsError unwraps err into a provider *Error if there is one in its chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classifyStatus maps a non-2xx provider response to an Error with a
// stable user-facing message.
func classifyStatus(providerName string, status int, raw []byte) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{
			Provider: providerName,
			Kind:     KindUnauthorized,
			Message:  "The AI provider rejected our credentials.",
			Raw:      raw,
		}
	case status == http.StatusTooManyRequests:
		return &Error{
			Provider: providerName,
			Kind:     KindRateLimited,
			Message:  "The AI provider is throttling requests. Please try again shortly.",
			Raw:      raw,
		}
	default:
		return &Error{
			Provider: providerName,
			Kind:     KindUnknown,
			Message:  "The AI provider request failed.",
			Raw:      raw,
			err:      fmt.Errorf("unexpected status %d", status),
		}
	}
}

// classifyTransport maps a failed round trip (no HTTP response) to an Error.
func classifyTransport(providerName string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Provider: providerName,
			Kind:     KindTimeout,
			Message:  "The AI provider took too long to respond.",
			err:      err,
		}
	}
	return &Error{
		Provider: providerName,
		Kind:     KindUnknown,
		Message:  "The AI provider could not be reached.",
		err:      err,
	}
}

// protocolError reports a 2xx response whose body is missing the expected
// completion shape.
func protocolError(providerName string, raw []byte) *Error {
	return &Error{
		Provider: providerName,
		Kind:     KindProtocol,
		Message:  "The AI provider returned an unexpected response.",
		Raw:      raw,
	}
}
