// Package version carries build metadata stamped in with -ldflags.
package version

import "fmt"

var (
	// Version is the bridge release, e.g. "0.3.1".
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata for the startup log and -version.
func String() string {
	sha := GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("lola-bridge %s (%s, built %s)", Version, sha, BuildTime)
}
