// Package definition parses and validates seedfuzz test definitions: Go functions annotated with `//seedfuzz:`
// directives. It performs purely static analysis of the source and never executes a test body.
package definition

import (
	"go/token"
	"math/big"
	"math/bits"

	"github.com/crytic/seedfuzz/harness"
	"github.com/google/uuid"
)

// DefaultRuns is the number of iterations a generative test runs when its directive does not set `runs`.
const DefaultRuns uint32 = 256

// Kind describes the kind of test a directive declares.
type Kind int

const (
	// KindFuzz describes a generative test: the fixture is re-created and every parameter is regenerated on each of
	// Runs iterations.
	KindFuzz Kind = iota
	// KindTest describes a single execution of the body against one fixture, without generation or iteration.
	KindTest
)

// String returns the directive verb for the kind.
func (k Kind) String() string {
	if k == KindTest {
		return "test"
	}
	return "fuzz"
}

// TypeKind describes how values of a supported parameter type are generated.
type TypeKind int

const (
	// IntegerType is any fixed-width Go integer, generated through the generic generators.
	IntegerType TypeKind = iota
	// Uint256Type is *uint256.Int, generated through the 256-bit generators.
	Uint256Type
)

// TypeInfo describes a parameter type that seedfuzz can generate values for.
type TypeInfo struct {
	// Name is the type as it appears in source and generated code, e.g. "uint8" or "*uint256.Int".
	Name string

	// Kind selects the generator family used for the type.
	Kind TypeKind

	// Bits describes the width of the type.
	Bits int

	// Signed describes whether the type is a signed integer.
	Signed bool
}

// integerTypes describes the registry of supported integer types. Adding a width is a single entry here; the
// generators are generic over every Go integer type.
var integerTypes = map[string]TypeInfo{
	"uint8":  {Name: "uint8", Bits: 8},
	"byte":   {Name: "byte", Bits: 8},
	"uint16": {Name: "uint16", Bits: 16},
	"uint32": {Name: "uint32", Bits: 32},
	"uint64": {Name: "uint64", Bits: 64},
	"uint":   {Name: "uint", Bits: bits.UintSize},
	"int8":   {Name: "int8", Bits: 8, Signed: true},
	"int16":  {Name: "int16", Bits: 16, Signed: true},
	"int32":  {Name: "int32", Bits: 32, Signed: true},
	"int64":  {Name: "int64", Bits: 64, Signed: true},
	"int":    {Name: "int", Bits: bits.UintSize, Signed: true},
}

// uint256Type describes the *uint256.Int parameter type.
var uint256Type = TypeInfo{Name: "*uint256.Int", Kind: Uint256Type, Bits: 256}

// Uint256ImportPath is the import path of the 256-bit integer package.
const Uint256ImportPath = "github.com/holiman/uint256"

// LookupType returns the TypeInfo registered for a builtin integer type name.
func LookupType(name string) (TypeInfo, bool) {
	info, ok := integerTypes[name]
	return info, ok
}

// RangeSpec describes the `range(start..end)` modifier of a parameter.
type RangeSpec struct {
	// Start is the Go source of the inclusive lower bound expression.
	Start string

	// End is the Go source of the exclusive upper bound expression.
	End string

	// Packages are the package identifiers referenced by the bound expressions (e.g. "math" in math.MaxUint8).
	Packages []string

	// StartValue and EndValue are the bound values when they could be evaluated without package context, else nil.
	StartValue, EndValue *big.Int

	// Pos describes the location of the modifier.
	Pos token.Position
}

// ParamSpec describes one generated parameter of a test.
type ParamSpec struct {
	// Name is the parameter name, unique within its TestSpec.
	Name string

	// Type describes the parameter type.
	Type TypeInfo

	// Range describes the optional value range. A nil range implies full-domain generation.
	Range *RangeSpec

	// Index is the zero-based position of the parameter among generated parameters. The parameter's generator is
	// seeded with Seed + Index.
	Index int

	// Pos describes the location of the parameter.
	Pos token.Position
}

// TestSpec describes one parsed test definition. It is immutable once returned by the parser.
type TestSpec struct {
	// Name is the name of the annotated function, which is the test body.
	Name string

	// Kind describes whether the test is generative or a single execution.
	Kind Kind

	// FixtureType is the type expression of the fixture providing Setup. Empty only for a KindTest without fixture.
	FixtureType string

	// FixturePackages are package identifiers referenced by FixtureType.
	FixturePackages []string

	// Runs is the number of iterations of a generative test.
	Runs uint32

	// Seed is the base seed of a generative test.
	Seed uint64

	// SeedExplicit describes whether Seed was supplied by the directive rather than defaulted.
	SeedExplicit bool

	// Params are the generated parameters in declaration order, the fixture parameter excluded.
	Params []ParamSpec

	// ReturnsError describes whether the body returns an error which signals failure when non-nil.
	ReturnsError bool

	// Pos describes the location of the function declaration.
	Pos token.Position
}

// ID returns a stable identifier of the test within the package with the given import path.
func (s *TestSpec) ID(pkgPath string) uuid.UUID {
	return harness.HarnessID(pkgPath, s.Name)
}

// TestName returns the name of the generated `go test` function.
func (s *TestSpec) TestName() string {
	return "Test" + upperFirst(s.Name)
}

// upperFirst returns name with its first byte upper-cased, so the generated test function is exported.
func upperFirst(name string) string {
	if name == "" {
		return name
	}
	if c := name[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + name[1:]
	}
	return name
}

// File describes the test definitions found in one Go source file.
type File struct {
	// Path is the path of the source file.
	Path string

	// Package is the package name declared by the file.
	Package string

	// Imports maps local package names to import paths for the file's imports.
	Imports map[string]string

	// Specs are the test definitions of the file, in source order.
	Specs []*TestSpec
}
