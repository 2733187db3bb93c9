package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo_Short(t *testing.T) {
	testCases := []struct {
		name     string
		info     BuildInfo
		expected string
	}{
		{"release", BuildInfo{Version: "v1.2.0", GitCommit: "abc1234def"}, "v1.2.0 (abc1234)"},
		{"dev", BuildInfo{Version: "dev", GitCommit: "abc1234def"}, "dev-abc1234"},
		{"no commit", BuildInfo{Version: "v1.2.0", GitCommit: "unknown"}, "v1.2.0"},
		{"short commit", BuildInfo{Version: "dev", GitCommit: "abc"}, "dev"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.info.Short())
		})
	}
}

func TestBuildInfo_String(t *testing.T) {
	info := &BuildInfo{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}

	assert.Equal(t, "Version: v1.0.0\nCommit: abc1234 (dirty)\nBuilt: 2026-01-02T03:04:05Z\nGo: go1.24.4\nPlatform: linux/amd64", info.String())
	assert.True(t, info.IsRelease())
	assert.False(t, (&BuildInfo{Version: "dev-abc1234"}).IsRelease())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("garbage").IsZero())
	assert.Equal(t, 2026, parseTime("2026-10-17T08:00:00Z").Year())
	assert.Equal(t, 17, parseTime("2026-10-17 08:00:00").Day())
}
