package common

import "fmt"

// Version variables injected at build time via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns a formatted version string with the commit
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s)", Version, GitCommit)
}
