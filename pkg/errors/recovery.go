package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const detailPanic = "panic"

// Guard calls fn and turns a panic inside it into the error RecoverPanic
// builds. Handlers fed from Kafka run under it so one poisoned message cannot
// take the consumer down.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverPanic(r)
		}
	}()
	return fn()
}

// RecoverPanic turns a recovered panic value into a fatal internal error with
// the stack trace in its details.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail(detailPanic, true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}

// IsPanic reports whether err came out of RecoverPanic.
func IsPanic(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	p, _ := appErr.Details[detailPanic].(bool)
	return p
}
