package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWithBuildInfo ensures embedded VCS settings and module versions fill the fields ldflags left empty.
func TestWithBuildInfo(t *testing.T) {
	build := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/crytic/seedfuzz", Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-03-01T10:20:30Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := Info{Version: "0.3.0", GoVersion: "go1.23.3"}.withBuildInfo(build, false)

	assert.Equal(t, "0.4.1", info.Version)
	assert.Equal(t, "0123456", info.ShortCommit())
	assert.True(t, info.GitTreeDirty)
	assert.Equal(t, "0.4.1+0123456-dirty", info.Short())
	assert.Equal(t, "2025-03-01 10:20:30 UTC", info.FormattedTime())
	assert.Equal(t, "seedfuzz version 0.4.1\n"+
		"  Commit:     0123456-dirty\n"+
		"  Built:      2025-03-01 10:20:30 UTC\n"+
		"  Go version: go1.23.3\n", info.String())
}

// TestWithBuildInfoKeepsExplicitValues ensures values provided through ldflags win over embedded settings, and that
// development builds keep the default version.
func TestWithBuildInfoKeepsExplicitValues(t *testing.T) {
	build := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}, {Key: "vcs.modified", Value: "true"}},
	}
	info := Info{Version: "0.3.0", GitCommit: "abc"}.withBuildInfo(build, true)

	assert.Equal(t, "0.3.0", info.Version)
	assert.Equal(t, "abc", info.GitCommit)
	assert.False(t, info.GitTreeDirty)
	assert.Equal(t, "0.3.0+abc", info.Short())
	assert.Equal(t, "unknown", Info{}.FormattedTime())
}
