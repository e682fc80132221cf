// Package version reports build metadata. Release builds set the variables
// with -ldflags "-X github.com/kailas-cloud/venuerank/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime/debug"
)

//nolint:revive // set via ldflags
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, or the VCS revision stamped by the go tool when
// the binary was built from a checkout without ldflags.
func Revision() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				return s.Value[:12]
			}
		}
	}
	return "unknown"
}

// String formats the version line printed by the CLI and startup log.
func String() string {
	if Date == "" {
		return fmt.Sprintf("venuerank %s (%s)", Version, Revision())
	}
	return fmt.Sprintf("venuerank %s (%s, built %s)", Version, Revision(), Date)
}
