// Package apierror translates raw transport failures and provider HTTP
// statuses into a small, fixed set of error kinds. Every error that leaves
// the integration layer is a *ServiceError carrying a user-presentable
// message; raw causes are kept on the internal message only.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an integration failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindCredential
	KindNetwork
	KindTimeout
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindInternal:
		return "provider_internal"
	default:
		return "generic"
	}
}

// ServiceError is the single error type surfaced by the integration layer.
// StatusCode is the provider's HTTP status; 0 indicates a failure below the
// HTTP layer (DNS, connection refused, and so on).
type ServiceError struct {
	Kind            Kind
	Provider        string
	StatusCode      int
	UserMessage     string
	InternalMessage string
	Details         map[string]any
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.InternalMessage, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.InternalMessage, e.Kind)
}

// Status maps the error onto the status code and message used by the inbound
// HTTP surface. Provider-side failures deliberately collapse to 502: the
// caller's request was fine, the upstream call was not.
func (e *ServiceError) Status() (int, string) {
	switch e.Kind {
	case KindCredential:
		return http.StatusBadRequest, e.UserMessage
	case KindRateLimited:
		return http.StatusTooManyRequests, e.UserMessage
	case KindTimeout:
		return http.StatusGatewayTimeout, e.UserMessage
	default:
		return http.StatusBadGateway, e.UserMessage
	}
}

// WithDetail attaches a key/value pair to the error's details, allocating the
// map on first use. Returns the receiver for chaining.
func (e *ServiceError) WithDetail(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any, 4)
	}
	e.Details[key] = value
	return e
}

func message(kind Kind, provider string) string {
	switch kind {
	case KindCredential:
		return fmt.Sprintf("The %s credentials are not in the expected format. Check the connection settings and try again.", provider)
	case KindNetwork:
		return fmt.Sprintf("%s could not be reached. Check your network connection and try again.", provider)
	case KindTimeout:
		return fmt.Sprintf("%s took too long to respond. Try again in a few minutes.", provider)
	case KindUnauthorized:
		return fmt.Sprintf("%s rejected the configured credentials. Verify the API key in the connection settings.", provider)
	case KindForbidden:
		return fmt.Sprintf("The configured %s account is not allowed to perform this operation.", provider)
	case KindRateLimited:
		return fmt.Sprintf("%s is rate limiting requests. Wait a moment before retrying.", provider)
	case KindInternal:
		return fmt.Sprintf("%s reported an internal error. Try again later.", provider)
	default:
		return fmt.Sprintf("The request to %s failed unexpectedly.", provider)
	}
}

// New builds a ServiceError of the given kind with the fixed user message for
// the provider context.
func New(kind Kind, provider, internal string) *ServiceError {
	return &ServiceError{
		Kind:            kind,
		Provider:        provider,
		UserMessage:     message(kind, provider),
		InternalMessage: internal,
	}
}

// FromStatus translates a provider HTTP status into a ServiceError. Statuses
// below 300 do not represent failures and must not be passed here.
func FromStatus(provider string, status int, body []byte) *ServiceError {
	var kind Kind
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindInternal
	default:
		kind = KindGeneric
	}

	detail := fmt.Sprintf("unexpected status %d", status)
	if len(body) > 0 {
		detail = fmt.Sprintf("unexpected status %d: %s", status, truncate(body, 512))
	}

	err := New(kind, provider, detail)
	err.StatusCode = status
	return err
}

// Classify translates an arbitrary transport error into a ServiceError. An
// error that is already a ServiceError passes through unchanged so earlier
// classifications are never overwritten.
func Classify(provider string, err error) *ServiceError {
	var svc *ServiceError
	if errors.As(err, &svc) {
		return svc
	}

	if isTimeout(err) {
		return New(KindTimeout, provider, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return New(KindNetwork, provider, err.Error())
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return New(KindNetwork, provider, err.Error())
	}

	return New(KindGeneric, provider, err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsKind reports whether err is (or wraps) a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var svc *ServiceError
	return errors.As(err, &svc) && svc.Kind == kind
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
