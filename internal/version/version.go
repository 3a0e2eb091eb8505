// Package version reports the build identity of the serlink binaries.
//
// Values can be stamped at link time:
//
//	go build -ldflags="-X github.com/muurk/serlink/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/serlink/internal/version.Commit=abc1234"
//
// Unstamped builds fall back to the VCS data embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// Version is the release tag, e.g. "v0.3.0".
	Version = ""
	// Commit is the short git revision.
	Commit = ""
)

// Info is the resolved build identity.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"builtAt,omitempty"`
	GoVersion string `json:"goVersion"`
}

var resolve = sync.OnceValue(func() Info {
	return fromBuildInfo(Version, Commit, debug.ReadBuildInfo)
})

// Get returns the build identity.
func Get() Info {
	return resolve()
}

// fromBuildInfo fills whatever ldflags left empty from the embedded VCS
// settings.
func fromBuildInfo(v, commit string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: v, Commit: commit, GoVersion: runtime.Version()}

	if bi, ok := read(); ok {
		var revision, modified string
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuiltAt = t.UTC().Format("2006-01-02")
				}
			}
		}

		if info.Commit == "" && revision != "" {
			info.Commit = revision[:min(7, len(revision))]
			if modified == "true" {
				info.Commit += "-dirty"
			}
		}
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}

	if info.Version == "" {
		info.Version = "dev"
		if info.BuiltAt != "" {
			info.Version += "-" + info.BuiltAt
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Short returns just the version, e.g. "v0.3.0".
func Short() string {
	return Get().Version
}

// Full returns the version with its commit.
func Full() string {
	i := Get()
	return fmt.Sprintf("%s (commit: %s, %s)", i.Version, i.Commit, i.GoVersion)
}

// UserAgent is sent by the remote client.
func UserAgent() string {
	return "serlink/" + Short()
}
