package extract

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindServiceUnavailable Kind = "service_unavailable" // client not configured / disabled
	KindNetwork            Kind = "network"             // transport failure, timeout
	KindInvalidCredential  Kind = "invalid_credential"  // authentication rejected
	KindQuotaExceeded      Kind = "quota_exceeded"      // rate/usage limit
	KindInvalidResponse    Kind = "invalid_response"    // malformed payload
	KindParsingFailed      Kind = "parsing_failed"      // well-formed but unusable payload
)

// Error is the typed failure of a remote extraction client. Every underlying
// transport or provider failure maps to exactly one Kind.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf extracts the error kind; ok is false for non-extraction errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// FromStatus maps a non-200 HTTP status to a kind.
func FromStatus(provider string, status int, body string) *Error {
	kind := KindNetwork
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindInvalidCredential
	case status == http.StatusTooManyRequests:
		kind = KindQuotaExceeded
	case status == http.StatusPaymentRequired:
		kind = KindQuotaExceeded
	}
	return NewError(kind, provider, fmt.Errorf("status %d: %s", status, body))
}

// FromTransport maps a round-trip error to a network-kind error. Timeouts,
// DNS failures and context cancellation all land here; the orchestrator
// treats them uniformly as the degraded fall-back-to-local path.
func FromTransport(provider string, err error) *Error {
	return NewError(KindNetwork, provider, err)
}
