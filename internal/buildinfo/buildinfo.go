// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "fmt"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/coursetable/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/coursetable/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/coursetable/internal/buildinfo.BuildDate=...
var BuildDate = ""

// String formats the build metadata for `coursetable version`.
func String() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" {
		commit = "unknown"
	}
	if BuildDate == "" {
		return fmt.Sprintf("coursetable %s (%s)", version, commit)
	}
	return fmt.Sprintf("coursetable %s (%s, built %s)", version, commit, BuildDate)
}
