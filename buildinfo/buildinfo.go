// Package buildinfo provides build-time properties injected via ldflags:
//
//	go build -ldflags "-X github.com/nomis52/signup/buildinfo.version=v1.2.0 \
//	  -X github.com/nomis52/signup/buildinfo.gitCommit=$(git rev-parse HEAD)"
package buildinfo

import "runtime"

// Properties holds build-time properties injected via ldflags.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties.
func Get() Properties {
	return Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}
