package ads

import (
	"errors"
	"fmt"
)

// Kind classifies service errors so the HTTP layer can map them to
// status codes without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindReferentialIntegrity
	KindValidation
	KindUnsupported
)

// Error is a kinded service error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func refIntegrityf(format string, args ...any) error {
	return &Error{Kind: KindReferentialIntegrity, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func unsupportedf(format string, args ...any) error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool             { return kindOf(err) == KindNotFound }
func IsReferentialIntegrity(err error) bool { return kindOf(err) == KindReferentialIntegrity }
func IsValidation(err error) bool           { return kindOf(err) == KindValidation }
func IsUnsupported(err error) bool          { return kindOf(err) == KindUnsupported }

// ErrKind exposes the kind for HTTP status mapping.
func ErrKind(err error) Kind { return kindOf(err) }
