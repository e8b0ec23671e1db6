package codegen

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/crytic/seedfuzz/utils"
	"github.com/crytic/seedfuzz/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boundedSource fails on the first drawn value of x at or above 15, and declares a zero-run test whose fixture must
// never be created.
const boundedSource = `package bounded

import "fmt"

type Fixture struct{}

func (Fixture) Setup() Fixture { return Fixture{} }

type Exploding struct{}

func (Exploding) Setup() Exploding { panic("setup must not run") }

//seedfuzz:fuzz(Fixture, runs = 3, seed = 42)
func Bounded(
	f Fixture,
	x uint8, //seedfuzz:range(10..20)
) error {
	if x >= 15 {
		return fmt.Errorf("x = %d is not below 15", x)
	}
	return nil
}

//seedfuzz:fuzz(Exploding, runs = 0, seed = 1)
func Never(e Exploding, y uint16) {}
`

// TestGeneratedHarnessRuns generates a harness in a module depending on this repository, runs it with go test and
// ensures the emitted code halts at the first failing iteration with its reproduction details, and that a zero-run
// test passes without creating a fixture.
func TestGeneratedHarnessRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go test in a temporary module")
	}
	goBinary, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	repoRoot, err := filepath.Abs("..")
	require.NoError(t, err)
	if _, err = os.Stat(filepath.Join(repoRoot, "go.sum")); err != nil {
		t.Skip("go.sum is required to resolve the repository's dependencies offline")
	}

	dir := testutils.WriteTestModule(t, map[string]string{"bounded/bounded.go": boundedSource})
	testutils.WriteTestFiles(t, dir, map[string]string{"go.mod": "module " + testutils.TestModulePath + "\n\n" +
		"go 1.23.0\n\n" +
		"require github.com/crytic/seedfuzz v0.0.0\n\n" +
		"replace github.com/crytic/seedfuzz => " + filepath.ToSlash(repoRoot) + "\n",
	})
	require.NoError(t, utils.CopyFile(filepath.Join(repoRoot, "go.sum"), filepath.Join(dir, "go.sum")))

	_, err = newTestGenerator().GenerateDirectory(filepath.Join(dir, "bounded"))
	require.NoError(t, err)

	cmd := exec.Command(goBinary, "test", "-count=1", "-v", "./bounded")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")
	output, err := cmd.CombinedOutput()
	require.Error(t, err, string(output))

	out := string(output)
	assert.Contains(t, out, "--- FAIL: TestBounded")
	assert.Contains(t, out, "  Seed: 42\n  Iteration: 2\n  x: 17\n")
	assert.Contains(t, out, "fuzz test failed at iteration 2")
	assert.Contains(t, out, "--- PASS: TestNever")
	assert.NotContains(t, out, "setup must not run")
}
