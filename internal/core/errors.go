package core

import (
	"errors"
	"fmt"
)

// ErrKind classifies the failure modes the pipeline must distinguish.
// It is not a 1:1 mapping to Go's error type system: relevance swallows
// ErrKindParse into a conservative zero-value record rather than letting
// it propagate, while the analyzer returns it to its caller.
type ErrKind string

const (
	ErrKindValidation  ErrKind = "validation"
	ErrKindNotFound    ErrKind = "not_found"
	ErrKindConflict    ErrKind = "conflict"
	ErrKindRateLimited ErrKind = "rate_limited"
	ErrKindProviderErr ErrKind = "provider_error"
	ErrKindParse       ErrKind = "parse_error"
	ErrKindTimeout     ErrKind = "timeout"
	ErrKindVectorErr   ErrKind = "vector_error"
	ErrKindCacheErr    ErrKind = "cache_error"
	ErrKindInternal    ErrKind = "internal"
	ErrKindNoContent   ErrKind = "no_content"
)

// Error wraps an underlying error with a classification and the
// operation that produced it, so callers can branch with errors.Is
// against the sentinel Kind values below instead of string-matching.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind only, so errors.Is(err, ErrRateLimited)
// works without the caller knowing the Op or wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(op string, kind ErrKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Sentinel instances for errors.Is comparisons, e.g.:
//
//	if errors.Is(err, core.ErrRateLimited) { ... }
var (
	ErrValidation  = &Error{Kind: ErrKindValidation}
	ErrNotFound    = &Error{Kind: ErrKindNotFound}
	ErrConflict    = &Error{Kind: ErrKindConflict}
	ErrRateLimited = &Error{Kind: ErrKindRateLimited}
	ErrProvider    = &Error{Kind: ErrKindProviderErr}
	ErrParse       = &Error{Kind: ErrKindParse}
	ErrTimeout     = &Error{Kind: ErrKindTimeout}
	ErrVector      = &Error{Kind: ErrKindVectorErr}
	ErrCache       = &Error{Kind: ErrKindCacheErr}
	ErrInternal    = &Error{Kind: ErrKindInternal}
	ErrNoContent   = &Error{Kind: ErrKindNoContent}
)
