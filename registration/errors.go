package registration

import "errors"

// Kind classifies a registration failure for callers.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAlreadyRegistered Kind = "already_registered"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindNotRegistered     Kind = "not_registered"
	KindValidation        Kind = "validation_error"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "Activity not found"}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered, Message: "Student is already signed up"}
	ErrCapacityExceeded  = &Error{Kind: KindCapacityExceeded, Message: "Activity is at full capacity"}
	ErrNotRegistered     = &Error{Kind: KindNotRegistered, Message: "Student is not signed up for this activity"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "Invalid email address"}
)

// Error is a registration failure with a machine-readable kind and a message
// suitable for showing to the student.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or "" for errors that did not
// originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}
