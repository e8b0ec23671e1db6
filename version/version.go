// Package version provides build and version information for seedfuzz, read from the VCS metadata and module version
// the Go toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be set via ldflags at build time for explicit versioning. Empty values are filled from the
// build information embedded in the binary.
var (
	// Version is the semantic version of the build.
	Version = "0.3.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitCommitTime is the timestamp of the git commit.
	GitCommitTime = ""
	// GitTreeDirty indicates if the git tree was dirty at build time.
	GitTreeDirty = ""
)

// Info contains the full version information for the build.
type Info struct {
	Version       string
	GitCommit     string
	GitCommitTime string
	GitTreeDirty  bool
	GoVersion     string
}

// GetInfo returns the version information of the running binary.
func GetInfo() Info {
	info := Info{
		Version:       Version,
		GitCommit:     GitCommit,
		GitCommitTime: GitCommitTime,
		GitTreeDirty:  GitTreeDirty == "true",
		GoVersion:     runtime.Version(),
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildInfo(build, GitTreeDirty != "")
	}
	return info
}

// withBuildInfo fills the fields left empty by ldflags from embedded build information. A binary installed with
// `go install module@version` carries its module version but no VCS settings. dirtySet describes whether the dirty
// flag was set explicitly.
func (i Info) withBuildInfo(build *debug.BuildInfo, dirtySet bool) Info {
	if v := build.Main.Version; v != "" && v != "(devel)" {
		i.Version = strings.TrimPrefix(v, "v")
	}
	for _, kv := range build.Settings {
		switch kv.Key {
		case "vcs.revision":
			if i.GitCommit == "" {
				i.GitCommit = kv.Value
			}
		case "vcs.time":
			if i.GitCommitTime == "" {
				i.GitCommitTime = kv.Value
			}
		case "vcs.modified":
			if !dirtySet {
				i.GitTreeDirty = kv.Value == "true"
			}
		}
	}
	return i
}

// ShortCommit returns the first 7 characters of the git commit hash.
func (i Info) ShortCommit() string {
	if len(i.GitCommit) >= 7 {
		return i.GitCommit[:7]
	}
	return i.GitCommit
}

// FormattedTime returns the commit time in a human-readable format.
func (i Info) FormattedTime() string {
	if i.GitCommitTime == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, i.GitCommitTime)
	if err != nil {
		return i.GitCommitTime
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

// String returns a formatted multi-line version string.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "seedfuzz version %s\n", i.Version)
	if i.GitCommit != "" {
		commit := i.ShortCommit()
		if i.GitTreeDirty {
			commit += "-dirty"
		}
		fmt.Fprintf(&sb, "  Commit:     %s\n", commit)
	}
	if i.GitCommitTime != "" {
		fmt.Fprintf(&sb, "  Built:      %s\n", i.FormattedTime())
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}

// Short returns a single-line version string suitable for --version output.
func (i Info) Short() string {
	v := i.Version
	if i.GitCommit != "" {
		v += "+" + i.ShortCommit()
		if i.GitTreeDirty {
			v += "-dirty"
		}
	}
	return v
}
