// Package version provides build and version information for shotty.
package version

import (
	"fmt"
	"runtime"
)

// Build information, set through -ldflags at release time
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info represents version and build information
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the current version and build information
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// GetVersionString returns a one-line version string
func GetVersionString() string {
	if Version == "dev" {
		return fmt.Sprintf("shotty %s (commit: %s, built: %s)", Version, Commit, Date)
	}
	return fmt.Sprintf("shotty v%s", Version)
}

// GetFullVersionString returns a detailed version string with all build info
func GetFullVersionString() string {
	info := GetInfo()
	return fmt.Sprintf(`shotty EC2 snapshot tool
Version:    %s
Commit:     %s
Built:      %s
Go version: %s
Platform:   %s
`, info.Version, info.Commit, info.Date, info.GoVersion, info.Platform)
}
