package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X metals-dashboard/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata reported by the version command.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata. When the linker did not stamp a commit,
// the VCS revision recorded by the Go toolchain is used instead.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
	if info.Commit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = shortCommit(s.Value)
			case "vcs.time":
				if info.BuildDate == "unknown" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("metalsdash %s (commit %s, built %s, %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}

// UserAgent identifies this build to Yahoo and Telegram.
func UserAgent() string {
	return fmt.Sprintf("metalsdash/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
