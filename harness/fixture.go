// Package harness contains the runtime support called by generated harness tests: fixture creation, the per-iteration
// fault boundary and failure diagnostics.
package harness

// Fixture describes a type that can construct a fresh, fully-initialized instance of itself. Setup is invoked on the
// zero value of F, so pointer fixtures must not dereference their receiver:
//
//	func (*CounterFixture) Setup() *CounterFixture { return &CounterFixture{...} }
//
// No teardown contract exists; any cleanup is the fixture's own responsibility.
type Fixture[F any] interface {
	Setup() F
}

// Setup creates a new fixture of type F by calling Setup on its zero value.
func Setup[F Fixture[F]]() F {
	var fixture F
	return fixture.Setup()
}
