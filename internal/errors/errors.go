// Package errors defines the single tagged error type used across the service.
//
// Every business-rule failure is an *Error carrying a Kind. Boundaries (HTTP,
// gRPC, CLI) switch on Kind instead of on concrete types. Infrastructure
// failures are wrapped as KindInternal with the original cause preserved.
package errors

import (
	"fmt"
	"sort"
	"strings"

	ferrors "github.com/go-faster/errors"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindInvalidState
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAuthorization:
		return "AUTHORIZATION"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// AuthzCause subdivides KindAuthorization.
type AuthzCause string

const (
	CauseAuthority AuthzCause = "AUTHORITY"
	CauseOwnership AuthzCause = "OWNERSHIP"
	CauseStatus    AuthzCause = "STATUS"
)

// Error is the tagged error value.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Cause   AuthzCause
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail returns a copy of e with one more audit detail attached.
func (e *Error) WithDetail(key, value string) *Error {
	cp := *e
	cp.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// DetailKeys returns detail keys in stable order, for logging.
func (e *Error) DetailKeys() []string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New creates an error of the given kind with the kind's default code.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: kind.String(), Message: message}
}

// Wrap attaches kind and message to an underlying error. A nil err yields nil.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: kind.String(), Message: message, Err: err}
}

// InvalidInput reports malformed input on a named field.
func InvalidInput(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: KindValidation.String(), Message: message, Field: field}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    KindNotFound.String(),
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]string{"entity": entity, "id": id},
	}
}

// InvalidState reports a rejected state-machine transition.
func InvalidState(message string, current, target string) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Code:    KindInvalidState.String(),
		Message: message,
		Details: map[string]string{"current_status": current, "target_status": target},
	}
}

// Unauthorized reports an authorization denial. code is the machine-readable
// reason (for example SELF_APPROVAL).
func Unauthorized(cause AuthzCause, code, message string, details map[string]string) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: details,
	}
}

// As extracts the *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if ferrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err; untagged errors are KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
