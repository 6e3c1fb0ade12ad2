package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a resolution failure.
type Kind string

const (
	KindInvalidDomain        Kind = "INVALID_DOMAIN"
	KindTimeout              Kind = "TIMEOUT"
	KindNetworkError         Kind = "NETWORK_ERROR"
	KindNoConclusiveResponse Kind = "NO_CONCLUSIVE_RESPONSE"
	KindParseError           Kind = "PARSE_ERROR"
	KindServiceUnavailable   Kind = "SERVICE_UNAVAILABLE"
	KindUnsupportedTLD       Kind = "UNSUPPORTED_TLD"
)

// Sentinels for errors.Is; they match any *WhoisError of the same Kind.
var (
	ErrInvalidDomain        = &WhoisError{Kind: KindInvalidDomain}
	ErrTimeout              = &WhoisError{Kind: KindTimeout}
	ErrNetwork              = &WhoisError{Kind: KindNetworkError}
	ErrNoConclusiveResponse = &WhoisError{Kind: KindNoConclusiveResponse}
	ErrParse                = &WhoisError{Kind: KindParseError}
	ErrServiceUnavailable   = &WhoisError{Kind: KindServiceUnavailable}
	ErrUnsupportedTLD       = &WhoisError{Kind: KindUnsupportedTLD}
)

// WhoisError is a classified failure of one candidate or one tier.
type WhoisError struct {
	Kind   Kind
	Domain string
	Server string
	Err    error
}

func newError(kind Kind, domain, server string, err error) *WhoisError {
	return &WhoisError{Kind: kind, Domain: domain, Server: server, Err: err}
}

func errorf(kind Kind, domain, format string, args ...any) *WhoisError {
	return &WhoisError{Kind: kind, Domain: domain, Err: fmt.Errorf(format, args...)}
}

func (e *WhoisError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Domain != "" {
		b.WriteString(" ")
		b.WriteString(e.Domain)
	}
	if e.Server != "" {
		b.WriteString(" via ")
		b.WriteString(e.Server)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *WhoisError) Unwrap() error { return e.Err }

func (e *WhoisError) Is(target error) bool {
	t, ok := target.(*WhoisError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost *WhoisError in err, or ServiceUnavailable.
func KindOf(err error) Kind {
	var we *WhoisError
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindServiceUnavailable
}

// ErrUnexpectedObject indicates the RDAP response was not the expected object class.
type ErrUnexpectedObject string

func (e ErrUnexpectedObject) Error() string {
	return fmt.Sprintf("unexpected RDAP objectClassName, want %s", string(e))
}

// TierFailure records why one tier did not resolve a domain.
type TierFailure struct {
	Source Source
	Err    error
}

// ResolveError is returned when every tier failed. It matches ErrServiceUnavailable.
type ResolveError struct {
	Domain      string
	QueryTimeMs int64
	Failures    []TierFailure
}

func (e *ResolveError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Source, f.Err))
	}
	return fmt.Sprintf("%s %s: all tiers failed [%s]", KindServiceUnavailable, e.Domain, strings.Join(parts, "; "))
}

func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*WhoisError)
	return ok && t.Kind == KindServiceUnavailable
}

func (e *ResolveError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// Record returns the Unknown record that accompanies a total failure.
func (e *ResolveError) Record() *Record {
	return &Record{Domain: e.Domain, Availability: Unknown, DNSSEC: DNSSECUnknown, QueryTimeMs: e.QueryTimeMs}
}
