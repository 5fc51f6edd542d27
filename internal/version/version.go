// Package version reports the running gantry build.
package version

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Get returns the release version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionFile)
}

// Revision returns the short VCS revision compiled into the binary,
// or "unknown" when build info is absent.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return "unknown"
}
