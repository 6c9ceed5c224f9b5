// Package version carries build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the human-readable build line printed by `murmur version`.
func String() string {
	return fmt.Sprintf("murmur %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent identifies outbound HTTP requests.
func UserAgent() string {
	return "murmur/" + Version
}
