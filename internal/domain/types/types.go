// Package types contains the rejection taxonomy shared by the domain, the
// service and the transport layers.
//
// Every rejected request surfaces as an *Error carrying a Kind plus enough
// field-level detail (which constraint, which bound) for a caller to render
// a message next to the offending input.
package types

import (
	"errors"
	"strings"
)

// Kind classifies a rejected request.
type Kind string

// Rejection kinds.
const (
	KindQuestionClosed  Kind = "question_closed"
	KindInvalidAmount   Kind = "invalid_amount"
	KindInvalidAnswer   Kind = "invalid_answer"
	KindAlreadyResolved Kind = "already_resolved"
	KindNotFound        Kind = "not_found"
	KindInvalidRequest  Kind = "invalid_request"
	KindDuplicate       Kind = "duplicate"
)

// Error lets a bare Kind act as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Sentinel kinds usable with errors.Is.
var (
	ErrQuestionClosed  error = KindQuestionClosed
	ErrInvalidAmount   error = KindInvalidAmount
	ErrInvalidAnswer   error = KindInvalidAnswer
	ErrAlreadyResolved error = KindAlreadyResolved
	ErrNotFound        error = KindNotFound
	ErrInvalidRequest  error = KindInvalidRequest
	ErrDuplicate       error = KindDuplicate
)

// Error is a rejected request.
type Error struct {
	Kind    Kind   `json:"code"`
	Op      string `json:"-"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Bound   string `json:"bound,omitempty"`
	Err     error  `json:"-"`
}

// New creates an Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// NotFound reports an unknown entity id.
func NotFound(op, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Field: entity + "_id", Message: entity + " not found: " + id}
}

// WithField attaches the failing field and, optionally, the bound it violated.
func (e *Error) WithField(field, bound string) *Error {
	e.Field = field
	e.Bound = bound
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Field != "" {
		b.WriteString(" (field=")
		b.WriteString(e.Field)
		if e.Bound != "" {
			b.WriteString(", bound=")
			b.WriteString(e.Bound)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind sentinel or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return t != nil && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// is not a rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// IsRejection reports whether err is a caller-recoverable rejection rather
// than an internal fault.
func IsRejection(err error) bool {
	return KindOf(err) != ""
}
