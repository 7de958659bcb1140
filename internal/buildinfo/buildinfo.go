// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "runtime/debug"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/targetzero/coursebot/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/targetzero/coursebot/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/targetzero/coursebot/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release names this build for error reports and the health endpoint. It
// prefers the injected version, then the VCS revision Go embedded, then
// "dev".
func Release() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "dev"
}
