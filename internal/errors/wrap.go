package errors

import (
	"errors"
	"fmt"
)

// UserError pairs an internal error with the message shown to whoever is
// importing the timetable. Message is Chinese UI text; Cause keeps the
// sentinel for errors.Is.
type UserError struct {
	Op      string // component and step, e.g. "timetable.import"
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// WithUserMessage attaches message to err. It returns nil for a nil err.
func WithUserMessage(err error, op, message string) error {
	if err == nil {
		return nil
	}
	return &UserError{Op: op, Message: message, Cause: err}
}

// WithUserMessagef is WithUserMessage with a formatted message.
func WithUserMessagef(err error, op, format string, args ...any) error {
	return WithUserMessage(err, op, fmt.Sprintf(format, args...))
}

// GetUserMessage returns the message of the outermost UserError in err's
// chain, or err.Error() when there is none.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}
