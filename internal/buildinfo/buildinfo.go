// Package buildinfo reports the version Helio was built as. Release
// builds stamp the variables with -ldflags; plain `go build` binaries
// fall back to the VCS settings the toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Stamped at build time:
//
//	go build -ldflags "-X github.com/heliohq/helio/internal/buildinfo.Version=v1.2.0 ..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type vcs struct {
	revision string
	time     string
	modified bool
}

var readVCS = sync.OnceValue(func() vcs {
	var v vcs
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.time":
			v.time = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
})

// commit returns GitCommit, or the embedded VCS revision (short form,
// "-dirty" when modified) when the binary was not stamped.
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	v := readVCS()
	if v.revision == "" {
		return GitCommit
	}
	rev := v.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if v.modified {
		rev += "-dirty"
	}
	return rev
}

func buildTime() string {
	if BuildTime != "unknown" {
		return BuildTime
	}
	if t := readVCS().time; t != "" {
		return t
	}
	return BuildTime
}

// BuildInfo returns build and runtime facts keyed by field name.
func BuildInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": commit(),
		"build_time": buildTime(),
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

// UserAgent is sent on every outbound HTTP request.
func UserAgent() string {
	return fmt.Sprintf("Helio/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String is the one-line banner printed by `helio version`.
func String() string {
	return fmt.Sprintf("Helio Supervisor %s (%s) built %s", Version, commit(), buildTime())
}
