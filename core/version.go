package core

// Build metadata, injected with
//
//	go build -ldflags "-X thumbnail_studio/core.Version=$(git describe --tags --always)"
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo returns "version (built time, commit hash)".
func VersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
