package harness

import "fmt"

// AssertionError describes an assertion failure reported through T.
type AssertionError struct {
	Message string
}

// Error returns the error message string, implementing the `error` interface.
func (e *AssertionError) Error() string {
	return e.Message
}

// PanicT is an assertion target for libraries such as testify. Every reported failure panics with an AssertionError,
// which Isolate turns into the iteration's failure. This lets bodies that do not receive a *testing.T fail fast:
//
//	require.Less(harness.T, x, uint8(15))
type PanicT struct{}

// T is the shared PanicT instance.
var T PanicT

// Errorf panics with an AssertionError holding the formatted message.
func (PanicT) Errorf(format string, args ...any) {
	panic(&AssertionError{Message: fmt.Sprintf(format, args...)})
}

// FailNow panics with an AssertionError.
func (PanicT) FailNow() {
	panic(&AssertionError{Message: "assertion failed"})
}

// Helper is a no-op which lets PanicT satisfy testify's helper detection.
func (PanicT) Helper() {}
