// Package version reports build information for nescore
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time with -ldflags "-X nescore/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo merges the linker values with the VCS stamp of the binary
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if GitCommit == "unknown" {
				bi.GitCommit = setting.Value
			}
		case "vcs.time":
			if BuildTime == "unknown" {
				bi.BuildTime = setting.Value
			}
		case "vcs.modified":
			bi.Modified = setting.Value == "true"
		}
	}
	return bi
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// GetVersion returns a short version string. Development builds carry the
// commit they were built from.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	bi := GetBuildInfo()
	if bi.GitCommit == "unknown" {
		return Version
	}
	v := "dev-" + shortCommit(bi.GitCommit)
	if bi.Modified {
		v += "+dirty"
	}
	return v
}

// GetDetailedVersion returns a one line description of the build
func GetDetailedVersion() string {
	bi := GetBuildInfo()
	s := fmt.Sprintf("nescore version %s", GetVersion())

	if bi.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, bi.BuildTime); err == nil {
			s += fmt.Sprintf(" built on %s", t.Format("2006-01-02 15:04:05"))
		} else {
			s += fmt.Sprintf(" built on %s", bi.BuildTime)
		}
	}
	return s + fmt.Sprintf(" with %s for %s/%s", bi.GoVersion, bi.Platform, bi.Arch)
}

// WriteBuildInfo writes the build information as a table
func WriteBuildInfo(w io.Writer) {
	bi := GetBuildInfo()
	fmt.Fprintf(w, "nescore - NES emulator core\n")
	fmt.Fprintf(w, "Version:     %s\n", GetVersion())
	fmt.Fprintf(w, "Git Commit:  %s\n", bi.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", bi.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", bi.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", bi.Platform, bi.Arch)
}
