package main

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if v := getVersion(); v == "" {
		t.Error("getVersion() returned empty string")
	}
}

func TestGetCommit(t *testing.T) {
	t.Parallel()

	c := getCommit()
	if c == "" {
		t.Error("getCommit() returned empty string")
	}
	if c != "unknown" && len(c) > 7 {
		t.Errorf("expected a short hash, got %q", c)
	}
}

func TestGetDate(t *testing.T) {
	t.Parallel()

	if d := getDate(); d == "" {
		t.Error("getDate() returned empty string")
	}
}

func TestBuildSetting(t *testing.T) {
	t.Parallel()

	if got := buildSetting("no.such.setting"); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "formscan version "+getVersion()) {
		t.Errorf("unexpected output: %q", stdout)
	}
	if !strings.Contains(stdout, "commit:") || !strings.Contains(stdout, "built:") {
		t.Errorf("expected commit and build date, got %q", stdout)
	}
}
