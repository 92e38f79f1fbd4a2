package domain

import "errors"

// Error kinds. Every concrete error below unwraps to exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrDomain        = errors.New("domain error")
	ErrNotFound      = errors.New("not found")
)

// Error is a client-facing error with a message safe to return to the caller.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the kind sentinel of the error.
func (e *Error) Kind() error { return e.kind }

var (
	ErrInvalidInput = newError(ErrValidation, "Validation fails")

	ErrActorNotFound      = newError(ErrAuthorization, "User not found")
	ErrNotProvider        = newError(ErrAuthorization, "You can only create appointments with providers")
	ErrNotBooker          = newError(ErrAuthorization, "You don't have permission to cancel this appointment")
	ErrProviderOnly       = newError(ErrAuthorization, "Only provider can load notifications")
	ErrActorAlreadyExists = newError(ErrDomain, "Not create date in user")

	ErrPastDate           = newError(ErrDomain, "Past dates are not permitted")
	ErrSlotUnavailable    = newError(ErrDomain, "Appointment date is not available")
	ErrCancelWindowClosed = newError(ErrDomain, "You can only cancel appointments 2 hours in advance")
	ErrAlreadyCanceled    = newError(ErrDomain, "Appointment already canceled")

	ErrAppointmentNotFound  = newError(ErrNotFound, "Appointment not found")
	ErrNotificationNotFound = newError(ErrNotFound, "Notification not found")
	ErrUserNotFound         = newError(ErrNotFound, "User not found")
)
