package version

var (
	// Version is the current application version, stamped into every report
	// and ledger row so a certification number can be traced to the build that produced it.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the version with its commit, e.g. "0.1.0 (abc1234)".
func String() string {
	return Version + " (" + GitSHA + ")"
}
