package domain

import (
	"errors"
	"fmt"
)

// Kind is the closed set of application error kinds, per the error handling
// design: each kind carries its own HTTP status and retry policy.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidLLMResponse  Kind = "invalid_llm_response"
	KindUpstreamTransient   Kind = "upstream_transient"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindPartialDegradation  Kind = "partial_degradation"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error is the typed application error carried through every component.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a typed Error, optionally wrapping cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a *Error,
// defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether err should be retried by the caller's backoff
// loop.
func IsTransient(err error) bool {
	return KindOf(err) == KindUpstreamTransient
}

func Invalid(msg string) *Error           { return NewError(KindInvalidInput, msg, nil) }
func InvalidLLM(msg string) *Error        { return NewError(KindInvalidLLMResponse, msg, nil) }
func Transient(msg string, c error) *Error {
	return NewError(KindUpstreamTransient, msg, c)
}
func Unavailable(msg string, c error) *Error {
	return NewError(KindUpstreamUnavailable, msg, c)
}
func NotFound(msg string) *Error { return NewError(KindNotFound, msg, nil) }
func Internal(msg string, c error) *Error {
	return NewError(KindInternal, msg, c)
}
