package main

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/report"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	if cmd.Use != "compare <source>" {
		t.Errorf("unexpected Use: %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"with-id":  "i",
		"since":    "s",
		"json":     "j",
		"markdown": "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
}

// compareFixture stores three detections of form.html and one of
// other.html. It returns the database directory and the ids in order.
func compareFixture(t *testing.T) (string, []int64) {
	t.Helper()

	dir := t.TempDir()
	name := classified("bn", "Business Name", knowledge.CategoryBusinessName, 75)
	ein := classified("ein", "EIN", knowledge.CategoryEIN, 80)
	mail := classified("mail", "Email", knowledge.CategoryEmail, 100)

	ids := seedHistory(t, dir,
		storedReport("form.html", "h1", time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), name),
		storedReport("form.html", "h2", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), name, ein),
		storedReport("form.html", "h3", time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC), name, ein, mail),
		storedReport("other.html", "h4", time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC), name),
	)
	return dir, ids
}

func decodeComparison(t *testing.T, data string) report.Comparison {
	t.Helper()

	var c report.Comparison
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatalf("invalid comparison JSON: %v\n%s", err, data)
	}
	return c
}

func TestCompareCmd(t *testing.T) {
	t.Parallel()

	dir, ids := compareFixture(t)

	t.Run("latest two as text", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Detection Comparison: form.html", "Added Fields (1)", "[+] Email", "Unchanged: 2 fields"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("latest two as JSON", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "--json", "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := decodeComparison(t, stdout)
		if c.Previous.Hash != "h2" || c.Current.Hash != "h3" {
			t.Errorf("compared %s with %s, want h2 with h3", c.Previous.Hash, c.Current.Hash)
		}
		if len(c.Added) != 1 || c.Added[0].Category != knowledge.CategoryEmail {
			t.Errorf("unexpected added fields %+v", c.Added)
		}
		if !c.ContentChanged || c.ConfidenceDelta != 25 {
			t.Errorf("unexpected comparison %+v", c)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "-m", "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "# Detection Comparison: form.html") {
			t.Errorf("unexpected markdown:\n%s", stdout)
		}
	})

	t.Run("with id", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "-j", "-i", strconv.FormatInt(ids[0], 10), "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := decodeComparison(t, stdout)
		if c.Previous.Hash != "h1" || c.Current.Hash != "h3" {
			t.Errorf("compared %s with %s, want h1 with h3", c.Previous.Hash, c.Current.Hash)
		}
		if len(c.Added) != 2 || c.UnchangedCount != 1 {
			t.Errorf("unexpected comparison %+v", c)
		}
		if c.Verdict != report.VerdictGained {
			t.Errorf("verdict = %q, want %q", c.Verdict, report.VerdictGained)
		}
	})

	t.Run("with id of another source", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "-i", strconv.FormatInt(ids[3], 10), "form.html")
		if err == nil || !strings.Contains(err.Error(), "belongs to other.html") {
			t.Errorf("expected source mismatch error, got %v", err)
		}
	})

	t.Run("with unknown id", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "-i", "999", "form.html")
		if !errors.Is(err, ErrDetectionMissing) {
			t.Errorf("expected ErrDetectionMissing, got %v", err)
		}
	})

	t.Run("since", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "-j", "--since", "2025-02-01", "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := decodeComparison(t, stdout)
		if c.Previous.Hash != "h2" || c.Current.Hash != "h3" {
			t.Errorf("compared %s with %s, want h2 with h3", c.Previous.Hash, c.Current.Hash)
		}
	})

	t.Run("since before all detections", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := execute(t, "--db-dir", dir, "compare", "-j", "-s", "2024-12-01", "form.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c := decodeComparison(t, stdout); c.Previous.Hash != "h1" {
			t.Errorf("expected the oldest detection, got %s", c.Previous.Hash)
		}
	})

	t.Run("since after all but the latest", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "--since", "2025-04-01", "form.html")
		if !errors.Is(err, ErrNotEnoughHistory) {
			t.Errorf("expected ErrNotEnoughHistory, got %v", err)
		}
	})

	t.Run("invalid since", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "--since", "May 2025", "form.html")
		if err == nil || !strings.Contains(err.Error(), "invalid date format") {
			t.Errorf("expected date format error, got %v", err)
		}
	})

	t.Run("not enough history", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "other.html")
		if !errors.Is(err, ErrNotEnoughHistory) {
			t.Errorf("expected ErrNotEnoughHistory, got %v", err)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "--db-dir", dir, "compare", "-j", "-m", "form.html")
		if err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("requires a source", func(t *testing.T) {
		t.Parallel()

		if _, _, err := execute(t, "--db-dir", dir, "compare"); err == nil {
			t.Error("expected an error")
		}
	})
}
