package goadsio

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0

	// VersionPrerelease is empty for stable releases.
	VersionPrerelease = ""
)

// Version returns the semantic version string of the library.
func Version() string {
	return formatVersion(VersionMajor, VersionMinor, VersionPatch, VersionPrerelease)
}

func formatVersion(major, minor, patch int, pre string) string {
	v := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if pre != "" {
		v += "-" + pre
	}
	return v
}

// BuildInfo contains version and VCS information of the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GitTag    string `json:"git_tag,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// GetBuildInfo returns the library version plus whatever the Go toolchain
// embedded about the build.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{Version: Version()}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
			if len(s.Value) > 7 {
				info.GitCommit = s.Value[:7]
			}
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}

	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.GitTag = v
	}
	return info
}

func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("goadsio ")
	sb.WriteString(b.Version)

	if b.GitCommit != "" {
		sb.WriteString(" (commit: " + b.GitCommit)
		if b.Dirty {
			sb.WriteString("-dirty")
		}
		sb.WriteString(")")
	}
	if b.GitTag != "" {
		sb.WriteString(" [" + b.GitTag + "]")
	}
	if b.GoVersion != "" {
		sb.WriteString(" - " + b.GoVersion)
	}
	return sb.String()
}
