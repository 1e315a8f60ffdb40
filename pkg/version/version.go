package version

import "fmt"

// Injected at build time via ldflags
var (
	Version          = "dev"
	GitCommit        = "unknown"
	BuildDate        = "unknown"
	ComponentName    = "bosun"
	ComponentVersion = "0.0.0"
)

type Info struct {
	Version          string `json:"version"`
	GitCommit        string `json:"git_commit"`
	BuildDate        string `json:"build_date"`
	ComponentName    string `json:"component_name,omitempty"`
	ComponentVersion string `json:"component_version,omitempty"`
}

func GetInfo() Info {
	return Info{
		Version:          Version,
		GitCommit:        GitCommit,
		BuildDate:        BuildDate,
		ComponentName:    ComponentName,
		ComponentVersion: ComponentVersion,
	}
}

// GetShortCommit returns the first 7 characters of the commit hash
func GetShortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// String renders a single line for `bosun version` and startup logs
func String() string {
	return fmt.Sprintf("%s %s (%s, commit %s, built %s)",
		ComponentName, ComponentVersion, Version, GetShortCommit(), BuildDate)
}
