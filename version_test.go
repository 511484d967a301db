package goadsio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", Version())
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		major, minor, patch int
		pre                 string
		want                string
	}{
		{0, 1, 0, "", "0.1.0"},
		{0, 1, 0, "alpha", "0.1.0-alpha"},
		{1, 2, 3, "rc.1", "1.2.3-rc.1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.major, tt.minor, tt.patch, tt.pre))
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.Equal(t, Version(), info.Version)
	assert.True(t, strings.HasPrefix(info.String(), "goadsio "+Version()))
}

func TestBuildInfoString(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"basic version", BuildInfo{Version: "0.1.0"}, "goadsio 0.1.0"},
		{"with commit", BuildInfo{Version: "0.1.0", GitCommit: "abc1234"}, "goadsio 0.1.0 (commit: abc1234)"},
		{"with dirty commit", BuildInfo{Version: "0.1.0", GitCommit: "abc1234", Dirty: true}, "goadsio 0.1.0 (commit: abc1234-dirty)"},
		{
			"full info",
			BuildInfo{Version: "0.1.0", GitCommit: "abc1234", GitTag: "v0.1.0", GoVersion: "go1.24"},
			"goadsio 0.1.0 (commit: abc1234) [v0.1.0] - go1.24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}
