// Package version reports build metadata.
package version

import (
	"fmt"
	"runtime"
)

// DriverVersion is the sensor driver version, advertised to hosts that
// query the device.
const DriverVersion = "0.01.06"

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version       string `json:"version"`
	DriverVersion string `json:"driver_version"`
	GitCommit     string `json:"git_commit"`
	BuildDate     string `json:"build_date"`
	BuildID       string `json:"build_id"`
	GoVersion     string `json:"go_version"`
	Compiler      string `json:"compiler"`
	Platform      string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:       Version,
		DriverVersion: DriverVersion,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		BuildID:       BuildID,
		GoVersion:     runtime.Version(),
		Compiler:      runtime.Compiler,
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the version line printed by --version.
func String() string {
	return fmt.Sprintf("%s (driver %s, %s)", Version, DriverVersion, GitCommit)
}
