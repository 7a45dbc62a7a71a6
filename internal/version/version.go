// Package version exposes build-time version information.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns the full version string.
func Info() string {
	return fmt.Sprintf("fluxor %s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the version number.
func Short() string {
	return Version
}
