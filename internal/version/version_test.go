package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if !strings.Contains(String(), Version) {
		t.Errorf("String() = %q should include version %q", String(), Version)
	}
}

func TestStringWithCommit(t *testing.T) {
	origCommit, origTime := GitCommit, BuildTime
	defer func() { GitCommit, BuildTime = origCommit, origTime }()

	GitCommit = "abc1234"
	BuildTime = "2026-01-02T03:04:05Z"
	out := String()
	if !strings.Contains(out, "abc1234") || !strings.Contains(out, "2026-01-02") {
		t.Errorf("String() = %q should include commit and build time", out)
	}
}
