// Package version holds build identification, stamped via -ldflags.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for unstamped builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the version line printed by -version and logged at startup.
func String() string {
	return fmt.Sprintf("%s (%s) built %s", Version, GitSHA, BuildTime)
}
