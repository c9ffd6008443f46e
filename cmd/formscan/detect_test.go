package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/formscan/internal/config"
	"github.com/nao1215/formscan/internal/fetch"
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/report"
)

const registrationPage = `<html><head><title>Register a Business</title></head><body><form>
	<label for="bn">Business Name</label><input id="bn" name="business_name">
	<label for="ein">EIN</label><input id="ein" name="ein">
	<label for="em">Email</label><input id="em" type="email" name="email">
	<label for="c">Favorite color</label><input id="c" name="color">
	<label for="s">Shoe size</label><input id="s" name="shoe">
	<label for="h">Hobby</label><input id="h" name="hobby">
</form></body></html>`

func writePage(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}
	return path
}

func decodeJSONReport(t *testing.T, data string) report.JSONReport {
	t.Helper()

	var jr report.JSONReport
	if err := json.Unmarshal([]byte(data), &jr); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, data)
	}
	return jr
}

func TestNewDetectCmd(t *testing.T) {
	t.Parallel()

	cmd := NewDetectCmd()
	if cmd.Use != "detect [file|url ...]" {
		t.Errorf("unexpected Use: %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"state":     "s",
		"knowledge": "k",
		"list":      "l",
		"render":    "r",
		"timeout":   "t",
		"batch":     "b",
		"config":    "c",
		"json":      "j",
		"markdown":  "m",
		"ui":        "u",
		"output":    "o",
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
	for _, flag := range []string{"chrome-bin", "chrome-url", "no-cache", "no-history", "max-age"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to exist", flag)
		}
	}
}

func TestDetectJSON(t *testing.T) {
	t.Parallel()

	path := writePage(t, t.TempDir(), "register.html", registrationPage)
	stdout, _, err := execute(t, "detect", "--no-history", "--json", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jr := decodeJSONReport(t, stdout)
	if jr.Report == nil || jr.Report.Result == nil {
		t.Fatalf("expected a report with a result, got %+v", jr)
	}
	if jr.Report.Source != path {
		t.Errorf("source = %q, want %q", jr.Report.Source, path)
	}
	if jr.Report.Cached {
		t.Error("report should not be cached without history")
	}

	r := jr.Report.Result
	if !r.IsBusinessForm {
		t.Errorf("expected a business form, confidence %d", r.OverallConfidence)
	}
	if len(r.Fields) != 6 {
		t.Fatalf("expected 6 fields, got %d", len(r.Fields))
	}
	if got := r.Fields[0].Category; got != knowledge.CategoryBusinessName {
		t.Errorf("first field category = %q, want %q", got, knowledge.CategoryBusinessName)
	}
	if got := r.Fields[0].Label.Text; got != "Business Name" {
		t.Errorf("first field label = %q", got)
	}
}

func TestDetectText(t *testing.T) {
	t.Parallel()

	path := writePage(t, t.TempDir(), "register.html", registrationPage)
	stdout, stderr, err := execute(t, "detect", "--no-history", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Source:", path, "Verdict:", "Business Name"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "Detecting "+path) {
		t.Errorf("expected progress on stderr, got %q", stderr)
	}
}

func TestDetectMarkdownFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePage(t, dir, "register.html", registrationPage)
	out := filepath.Join(dir, "reports", "detect.md")

	stdout, _, err := execute(t, "detect", "--no-history", "--markdown", "-o", out, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}

	data, err := os.ReadFile(out) //nolint:gosec // test path
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(data), "# formscan Report") {
		t.Errorf("unexpected markdown:\n%s", data)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("report mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestDetectList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writePage(t, dir, "a.html", registrationPage)
	second := writePage(t, dir, "b.html", `<html><body><form>
		<label for="m">Moniker</label><input id="m" name="moniker">
	</form></body></html>`)
	list := writePage(t, dir, "sources.txt", "# pages\n"+first+"\n\n"+second+"\n")

	stdout, _, err := execute(t, "detect", "--no-history", "--json", "--list", list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jr := decodeJSONReport(t, stdout)
	if len(jr.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(jr.Reports))
	}
	got := []string{jr.Reports[0].Source, jr.Reports[1].Source}
	if diff := cmp.Diff([]string{first, second}, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if !jr.Reports[0].Result.IsBusinessForm {
		t.Error("expected the first page to be a business form")
	}
	if jr.Reports[1].Result.IsBusinessForm {
		t.Error("expected the second page not to be a business form")
	}
}

func TestDetectCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbDir := filepath.Join(dir, "db")
	path := writePage(t, dir, "register.html", registrationPage)

	stdout, _, err := execute(t, "--db-dir", dbDir, "detect", "--json", path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if decodeJSONReport(t, stdout).Report.Cached {
		t.Error("first run should not be cached")
	}

	stdout, _, err = execute(t, "--db-dir", dbDir, "detect", "--json", path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := decodeJSONReport(t, stdout).Report
	if !second.Cached {
		t.Error("second run should reuse the stored detection")
	}
	if second.Result == nil || len(second.Result.Fields) != 6 {
		t.Errorf("cached result incomplete: %+v", second.Result)
	}

	stdout, _, err = execute(t, "--db-dir", dbDir, "detect", "--json", "--no-cache", path)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if decodeJSONReport(t, stdout).Report.Cached {
		t.Error("--no-cache should force detection")
	}

	// Only the uncached runs are stored.
	stdout, _, err = execute(t, "--db-dir", dbDir, "history", "--json", path)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid history JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 stored detections, got %d", len(entries))
	}

	// A stored detection made under other knowledge is not reused.
	widget := writePage(t, dir, "widget.html", `<html><body><form>
	<label for="bn">Business Name</label><input id="bn" name="business_name">
	<label for="w">Widget code</label><input id="w" name="wc">
</form></body></html>`)
	kb := filepath.Join(dir, "k.yaml")
	if err := os.WriteFile(kb, []byte("categories:\n  naics_code:\n    keywords: [\"widget code\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	widgetCategory := func(t *testing.T, rep *model.Report) string {
		t.Helper()
		if rep.Result == nil {
			t.Fatal("missing result")
		}
		for _, f := range rep.Result.Fields {
			if f.Name == "wc" {
				return f.Category
			}
		}
		t.Fatal("widget field not detected")
		return ""
	}

	stdout, _, err = execute(t, "--db-dir", dbDir, "detect", "--json", widget)
	if err != nil {
		t.Fatalf("run without knowledge: %v", err)
	}
	if got := widgetCategory(t, decodeJSONReport(t, stdout).Report); got != model.CategoryOther {
		t.Errorf("without knowledge: category = %q, want other", got)
	}

	stdout, _, err = execute(t, "--db-dir", dbDir, "detect", "--json", "--knowledge", kb, widget)
	if err != nil {
		t.Fatalf("run with knowledge: %v", err)
	}
	rep := decodeJSONReport(t, stdout).Report
	if rep.Cached {
		t.Error("a detection stored without the knowledge file was reused")
	}
	if got := widgetCategory(t, rep); got != knowledge.CategoryNAICSCode {
		t.Errorf("with knowledge: category = %q, want %s", got, knowledge.CategoryNAICSCode)
	}

	stdout, _, err = execute(t, "--db-dir", dbDir, "detect", "--json", "--knowledge", kb, widget)
	if err != nil {
		t.Fatalf("repeat run with knowledge: %v", err)
	}
	rep = decodeJSONReport(t, stdout).Report
	if !rep.Cached || widgetCategory(t, rep) != knowledge.CategoryNAICSCode {
		t.Errorf("expected the knowledge run to be reused, cached=%v", rep.Cached)
	}
}

func TestDetectJurisdictionLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePage(t, dir, "register.html", registrationPage)
	kb := filepath.Join(dir, "k.yaml")
	content := "jurisdictions:\n  CA:\n    business_name:\n      label: \"Entity Name\"\n"
	if err := os.WriteFile(kb, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "detect", "--no-history", "--state", "CA", "--knowledge", kb, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Entity Name") {
		t.Errorf("expected the CA label in the report:\n%s", stdout)
	}

	stdout, _, err = execute(t, "detect", "--no-history", "--state", "TX", "--knowledge", kb, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(stdout, "Entity Name") {
		t.Errorf("the CA label leaked into a TX report:\n%s", stdout)
	}
}

func TestDetectErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePage(t, dir, "register.html", registrationPage)

	t.Run("no target", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "detect", "--no-history")
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "detect", "--no-history", "--json", "--markdown", path)
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "detect", "--no-history", "-c", filepath.Join(dir, "nope.yaml"), path)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "detect", "--no-history", "--proxy", "localhost", path)
		if !errors.Is(err, fetch.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("invalid header", func(t *testing.T) {
		t.Parallel()

		if _, _, err := execute(t, "detect", "--no-history", "-H", "nocolon", path); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("missing list file", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "detect", "--no-history", "--list", filepath.Join(dir, "nope.txt"))
		if err == nil || !strings.Contains(err.Error(), "target list") {
			t.Errorf("expected target list error, got %v", err)
		}
	})

	t.Run("missing page is reported and fails", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(dir, "missing.html")
		stdout, _, err := execute(t, "detect", "--no-history", "--json", missing)
		if err == nil || !strings.Contains(err.Error(), "1 of 1 sources failed") {
			t.Errorf("expected failure, got %v", err)
		}
		jr := decodeJSONReport(t, stdout)
		if jr.Report == nil || jr.Report.ErrorMessage == "" {
			t.Errorf("expected an error in the report, got %+v", jr.Report)
		}
	})
}

func TestDetectURLWithHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Portal-Token") != "abc" || r.Header.Get("Cookie") != "session_id=1" {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(registrationPage))
	}))
	t.Cleanup(srv.Close)

	_, _, err := execute(t, "detect", "--no-history", "--json", srv.URL+"/register")
	if err == nil {
		t.Error("expected a failure without the portal headers")
	}

	stdout, _, err := execute(t, "detect", "--no-history", "--json",
		"-H", "X-Portal-Token: abc", "--cookie", "session_id=1", srv.URL+"/register")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jr := decodeJSONReport(t, stdout)
	if jr.Report.Page == nil || jr.Report.Page.StatusCode != http.StatusOK {
		t.Fatalf("unexpected page %+v", jr.Report.Page)
	}
	if !jr.Report.Result.IsBusinessForm {
		t.Error("expected a business form")
	}
}

func TestDetectConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePage(t, dir, "register.html", registrationPage)
	cfgPath := writePage(t, dir, "formscan.yaml", "thresholds:\n  form: 100\n")

	stdout, _, err := execute(t, "detect", "--no-history", "--json", "-c", cfgPath, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decodeJSONReport(t, stdout).Report.Result.IsBusinessForm {
		t.Error("a form threshold of 100 should reject the page")
	}
}

func TestReadTargetList(t *testing.T) {
	t.Parallel()

	path := writePage(t, t.TempDir(), "list.txt", "  a.html \n# comment\n\nhttps://example.gov/form\n")
	got, err := readTargetList(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a.html", "https://example.gov/form"}, got); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestReportFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Config
		want report.Format
	}{
		{name: "text by default", want: report.FormatText},
		{name: "json", cfg: config.Config{JSONReport: true}, want: report.FormatJSON},
		{name: "markdown", cfg: config.Config{MarkdownReport: true}, want: report.FormatMarkdown},
		{name: "ui", cfg: config.Config{UIReport: true}, want: report.FormatUI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reportFormat(&tt.cfg); got != tt.want {
				t.Errorf("reportFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}
