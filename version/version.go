// Package version carries the build information stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
)

// Populated by the Go linker, for example:
//
//	-ldflags "-X github.com/grovetools/recordsync/version.Version=v0.3.0"
var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info holds all the versioning information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information of the running binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the information as aligned lines.
func (i Info) String() string {
	return fmt.Sprintf(
		"Version:\t%s\nCommit:\t\t%s\nBranch:\t\t%s\nBuild Date:\t%s\nGo Version:\t%s\nPlatform:\t%s",
		i.Version, i.Commit, i.Branch, i.BuildDate, i.GoVersion, i.Platform,
	)
}

// UserAgent identifies daemon clients, e.g. "recordsync/v0.3.0 (linux/amd64)".
func UserAgent() string {
	return fmt.Sprintf("recordsync/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
