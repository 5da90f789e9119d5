package core

import "testing"

func TestVersionInfo(t *testing.T) {
	oldV, oldB, oldC := Version, BuildTime, GitCommit
	t.Cleanup(func() { Version, BuildTime, GitCommit = oldV, oldB, oldC })

	Version, BuildTime, GitCommit = "v1.2.0", "2026-01-15T10:30:00Z", "abc1234"
	want := "v1.2.0 (built 2026-01-15T10:30:00Z, commit abc1234)"
	if got := VersionInfo(); got != want {
		t.Errorf("VersionInfo() = %q, want %q", got, want)
	}
}
