// Package versions provides version information for the fleetkeeper daemon.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	unknownStr = "unknown"
)

// Version information set by build using -ldflags
var (
	// Version is the current version of fleetkeeper
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = unknownStr
	// BuildDate is the date when the binary was built
	BuildDate = unknownStr
)

// VersionInfo represents the version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information
func GetVersionInfo() VersionInfo {
	return getVersionInfoWithValues(Version, Commit, BuildDate)
}

// getVersionInfoWithValues returns version info with provided values (for testing)
func getVersionInfoWithValues(version, commit, buildDate string) VersionInfo {
	ver := version
	commitVal := commit
	buildDateVal := buildDate

	if strings.HasPrefix(ver, "dev") {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					if commitVal == unknownStr {
						commitVal = setting.Value
					}
				case "vcs.time":
					if buildDateVal == unknownStr {
						buildDateVal = setting.Value
					}
				}
			}
		}
	}

	// Format the build date if it's a timestamp
	if buildDateVal != unknownStr {
		if t, err := time.Parse(time.RFC3339, buildDateVal); err == nil {
			buildDateVal = t.Format("2006-01-02 15:04:05 MST")
		}
	}

	// If the version is just "dev" - manufacture a version string using the commit.
	if ver == "dev" && commitVal != unknownStr {
		shortCommit := commitVal
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		ver = fmt.Sprintf("dev-%s", shortCommit)
	}

	return VersionInfo{
		Version:   ver,
		Commit:    commitVal,
		BuildDate: buildDateVal,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
