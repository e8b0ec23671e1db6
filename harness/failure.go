package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/crytic/seedfuzz/logging"
)

// Output describes where failure diagnostics are printed before a failing test is stopped.
var Output io.Writer = os.Stderr

// Param describes one generated parameter value of a failing iteration.
type Param struct {
	// Name is the parameter name as declared on the test body.
	Name string

	// Value is the value generated for the parameter in the failing iteration.
	Value any
}

// Failure describes the first failing iteration of a generated harness test.
type Failure struct {
	// Name is the name of the test body.
	Name string

	// Seed is the base seed the harness derived every parameter seed from.
	Seed uint64

	// Iteration is the zero-based index of the failing iteration.
	Iteration uint32

	// Params are the generated values of the failing iteration, in declaration order.
	Params []Param

	// Err is the outcome reported by Isolate.
	Err error
}

// Error returns the error message string, implementing the `error` interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed at iteration %d (seed %d): %v", f.Name, f.Iteration, f.Seed, f.Err)
}

// Unwrap returns the underlying body failure.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Diagnostic renders the reproduction details of the failure: the base seed, the iteration index and one line per
// parameter with its generated value.
func (f *Failure) Diagnostic() string {
	var b strings.Builder
	b.WriteString("Fuzz test failed!\n")
	fmt.Fprintf(&b, "  Seed: %d\n", f.Seed)
	fmt.Fprintf(&b, "  Iteration: %d\n", f.Iteration)
	for _, param := range f.Params {
		fmt.Fprintf(&b, "  %s: %v\n", param.Name, param.Value)
	}
	return b.String()
}

// Fail prints the failure diagnostic to Output, logs it, and stops the test through tb.Fatalf. No further iterations
// run after Fail.
func Fail(tb testing.TB, f *Failure) {
	tb.Helper()

	fmt.Fprint(Output, f.Diagnostic())

	values := make(map[string]any, len(f.Params))
	for _, param := range f.Params {
		values[param.Name] = fmt.Sprintf("%v", param.Value)
	}
	logging.GlobalLogger.NewSubLogger("module", logging.HARNESS_SERVICE).Error(
		"Harness ", f.Name, " failed at iteration ", f.Iteration, f.Err,
		logging.StructuredLogInfo{"seed": f.Seed, "iteration": f.Iteration, "params": values},
	)

	tb.Fatalf("fuzz test failed at iteration %d: %v", f.Iteration, f.Err)
}
