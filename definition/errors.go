package definition

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// ErrorKind describes the category of a definition error.
type ErrorKind string

const (
	// MalformedParameter describes a parameter that does not bind a simple name, shadows a name the generated test
	// uses, or carries a misplaced directive.
	MalformedParameter ErrorKind = "malformed parameter"
	// IncompleteRange describes a range modifier that lacks its start or its end bound.
	IncompleteRange ErrorKind = "incomplete range"
	// InvalidRange describes a range modifier that is not a half-open start..end range of constant expressions, or
	// whose bounds are statically known to be unusable for the parameter type.
	InvalidRange ErrorKind = "invalid range"
	// UnknownOption describes a directive option other than `runs` or `seed`.
	UnknownOption ErrorKind = "unknown option"
	// DuplicateOption describes a directive option given more than once.
	DuplicateOption ErrorKind = "duplicate option"
	// InvalidLiteral describes an option value that is not a non-negative integer literal fitting its option.
	InvalidLiteral ErrorKind = "invalid literal"
	// MissingFixture describes a directive or function without a fixture.
	MissingFixture ErrorKind = "missing fixture"
	// UnsupportedType describes a parameter type that seedfuzz cannot generate values for.
	UnsupportedType ErrorKind = "unsupported type"
	// MalformedDeclaration describes an annotated declaration seedfuzz cannot build a test from.
	MalformedDeclaration ErrorKind = "malformed declaration"
)

// DefinitionError describes a rejected test definition, positioned at the offending source element.
type DefinitionError struct {
	// Kind describes the category of the error.
	Kind ErrorKind

	// Pos describes the location of the offending element.
	Pos token.Position

	// Msg describes the problem.
	Msg string
}

// newDefinitionError returns a DefinitionError with a formatted message.
func newDefinitionError(kind ErrorKind, pos token.Position, format string, args ...any) *DefinitionError {
	return &DefinitionError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Error returns the error message string, implementing the `error` interface.
func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// DefinitionErrors describes every definition error found while parsing a set of files. Generation is all-or-nothing,
// so every error is collected before any output is produced.
type DefinitionErrors []*DefinitionError

// Error returns the error message string, implementing the `error` interface. Each error is printed on its own line.
func (l DefinitionErrors) Error() string {
	switch len(l) {
	case 0:
		return "no definition errors"
	case 1:
		return l[0].Error()
	}
	lines := make([]string, len(l))
	for i, err := range l {
		lines[i] = err.Error()
	}
	return fmt.Sprintf("%d definition errors:\n%s", len(l), strings.Join(lines, "\n"))
}

// Sort orders the errors by file, line and column.
func (l DefinitionErrors) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i].Pos, l[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Err returns nil when the list is empty, or the sorted list otherwise.
func (l DefinitionErrors) Err() error {
	if len(l) == 0 {
		return nil
	}
	l.Sort()
	return l
}
