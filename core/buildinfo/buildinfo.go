package buildinfo

import "fmt"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/cloudbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/cloudbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/cloudbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Default values are useful for local dev.
var (
	// Name is the binary name reported in logs and --version output.
	Name = "cloudbot"
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a one-line build summary.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s %s (%s)", Name, Version, Commit)
	}
	return fmt.Sprintf("%s %s (%s, built %s)", Name, Version, Commit, Date)
}
