package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind classifies a provider failure. Kind implements error so callers can
// write errors.Is(err, provider.KindTimeout).
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindValidation
	KindTransport
	KindProtocol
	KindUpstreamPolicy
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindUpstreamPolicy:
		return "upstream_policy"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (k Kind) Error() string { return k.String() + " error" }

// Reason narrows an upstream policy rejection.
type Reason string

const (
	ReasonAuth      Reason = "auth"
	ReasonRateLimit Reason = "rate_limit"
	ReasonQuota     Reason = "quota"
)

// ErrServiceNotRunning marks a local daemon that did not answer its probe.
var ErrServiceNotRunning = errors.New("service is not running")

// Error is the single error type returned by providers.
type Error struct {
	Kind       Kind
	Reason     Reason
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind, so errors.Is(err, KindProtocol) works through wraps.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// NewConfigError reports settings that fail validation.
func NewConfigError(provider string, problems []string) *Error {
	return &Error{Kind: KindConfiguration, Provider: provider, Message: "invalid configuration: " + strings.Join(problems, "; ")}
}

// NewValidationError reports a malformed request.
func NewValidationError(provider string, problems []string) *Error {
	return &Error{Kind: KindValidation, Provider: provider, Message: "invalid request: " + strings.Join(problems, "; ")}
}

// NewProtocolError reports a response that arrived but is not usable.
func NewProtocolError(provider, message string) *Error {
	return &Error{Kind: KindProtocol, Provider: provider, Message: message}
}

// RequestError wraps a failure to complete an HTTP exchange. Context expiry
// becomes KindTimeout.
func RequestError(provider string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Provider: provider, Message: "request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTransport, Provider: provider, Message: "request cancelled", Err: err}
	default:
		return &Error{Kind: KindTransport, Provider: provider, Message: "request failed", Err: err}
	}
}

// StatusError classifies a non-200 response. Auth, rate limit and billing
// rejections become KindUpstreamPolicy; everything else is KindTransport.
func StatusError(provider string, status int, body string) *Error {
	detail := previewBody(body)
	e := &Error{Provider: provider, StatusCode: status, Message: "API returned " + http.StatusText(status)}
	if detail != "" {
		e.Message += ": " + detail
	}

	lower := strings.ToLower(body)
	switch {
	case status == http.StatusPaymentRequired,
		strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "billing"),
		strings.Contains(lower, "insufficient credits"):
		e.Kind, e.Reason = KindUpstreamPolicy, ReasonQuota
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.Kind, e.Reason = KindUpstreamPolicy, ReasonAuth
	case status == http.StatusTooManyRequests:
		e.Kind, e.Reason = KindUpstreamPolicy, ReasonRateLimit
	default:
		e.Kind = KindTransport
	}
	return e
}

// previewBody shortens an error body for messages, cutting on a rune
// boundary.
func previewBody(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	const limit = 200
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
