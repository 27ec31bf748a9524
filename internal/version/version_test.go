package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesBuildMetadata(t *testing.T) {
	originalVersion := Version
	originalCommit := Commit
	originalDate := Date
	t.Cleanup(func() {
		Version = originalVersion
		Commit = originalCommit
		Date = originalDate
	})

	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-02-18"

	got := String()
	require.Contains(t, got, "agrovoz 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=")
}

func TestStringFallsBackToBuildInfo(t *testing.T) {
	originalRead := readBuildInfo
	t.Cleanup(func() { readBuildInfo = originalRead })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Path: "github.com/rbright/agrovoz", Version: "v0.4.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	got := String()
	require.Contains(t, got, "agrovoz v0.4.0")
	require.Contains(t, got, "commit=0123456789ab-dirty")
	require.Contains(t, got, "date=2026-09-30T12:00:00Z")
}

func TestBuildInfoDoesNotOverrideLdflags(t *testing.T) {
	originalRead := readBuildInfo
	originalVersion := Version
	t.Cleanup(func() {
		readBuildInfo = originalRead
		Version = originalVersion
	})
	Version = "1.0.0"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, true
	}

	require.Equal(t, "1.0.0", Current().Version)

	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	require.Equal(t, "1.0.0", Current().Version)
}
