package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	return version(info)
}

func version(info *debug.BuildInfo) string {
	v := info.Main.Version
	if v == "" || v == "(devel)" {
		return "dev"
	}
	return v
}

func setting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// Revision returns the abbreviated VCS revision the binary was built from,
// with a "-dirty" suffix for modified trees, or "" when unknown.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return ""
	}
	return revision(info)
}

func revision(info *debug.BuildInfo) string {
	rev := setting(info, "vcs.revision")
	if rev == "" {
		return ""
	}
	rev = rev[:min(len(rev), 12)]
	if setting(info, "vcs.modified") == "true" {
		rev += "-dirty"
	}
	return rev
}

// Tags returns the GOFLAGS build tags recorded at compile time.
func Tags() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return ""
	}
	return setting(info, "-tags")
}

// VersionWithTags returns the version string followed by the revision and
// tags when present, e.g. "v0.3.0 (rev: 0123456789ab, tags: netgo)".
func VersionWithTags() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	return describe(info)
}

func describe(info *debug.BuildInfo) string {
	var extra []string
	if rev := revision(info); rev != "" {
		extra = append(extra, "rev: "+rev)
	}
	if tags := setting(info, "-tags"); tags != "" {
		extra = append(extra, "tags: "+tags)
	}
	if len(extra) == 0 {
		return version(info)
	}
	return fmt.Sprintf("%s (%s)", version(info), strings.Join(extra, ", "))
}
