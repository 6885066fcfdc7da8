package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a one-line build description for -version output and the
// startup log.
func String() string {
	return fmt.Sprintf("teleop-bridge %s (git %s, built %s, %s)", Version, GitSHA, BuildTime, runtime.Version())
}
