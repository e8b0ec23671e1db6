package harness

import (
	"fmt"
	"runtime/debug"
)

// PanicError describes a test body that terminated by panicking.
type PanicError struct {
	// Value is the value recovered from the panic.
	Value any

	// Stack is the goroutine stack at the time of recovery.
	Stack []byte
}

// Error returns the error message string, implementing the `error` interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Isolate executes fn and converts any abnormal termination into an error value. It returns the error fn returned,
// the AssertionError raised through T, or a PanicError for any other panic. Isolate does not intercept
// runtime.Goexit, so testing.TB.FailNow called inside fn still ends the test.
func Isolate(fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		if assertionErr, ok := recovered.(*AssertionError); ok {
			err = assertionErr
			return
		}
		err = &PanicError{
			Value: recovered,
			Stack: debug.Stack(),
		}
	}()
	return fn()
}
