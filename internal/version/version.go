// Package version carries build metadata stamped in via -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// GetInfo returns a single-line human readable build description.
func GetInfo() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
