package versions

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), info.Platform)
}

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		version     string
		commit      string
		buildDate   string
		wantVersion string
		wantDate    string
	}{
		{
			name:        "release build",
			version:     "1.2.3",
			commit:      "abcdef1234567890",
			buildDate:   unknownStr,
			wantVersion: "1.2.3",
			wantDate:    unknownStr,
		},
		{
			name:        "dev build derives version from commit",
			version:     "dev",
			commit:      "abcdef1234567890",
			buildDate:   unknownStr,
			wantVersion: "dev-abcdef12",
		},
		{
			name:        "rfc3339 build date is reformatted",
			version:     "1.0.0",
			commit:      "abc",
			buildDate:   "2026-08-28T10:30:00Z",
			wantVersion: "1.0.0",
			wantDate:    "2026-08-28 10:30:00 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, tt.wantVersion, info.Version)
			if tt.wantDate != "" {
				assert.Equal(t, tt.wantDate, info.BuildDate)
			}
		})
	}
}
