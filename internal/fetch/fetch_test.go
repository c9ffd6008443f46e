package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const formPage = `<!DOCTYPE html><html lang="en"><head><title>Register a Business</title></head>
<body><form><label for="bn">Business Name</label><input id="bn" name="business_name"></form></body></html>`

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"https://sos.ca.gov/form":  true,
		"HTTP://example.com":       true,
		"ftp://example.com/file":   false,
		"testdata/form.html":       false,
		"/tmp/form.html":           false,
		"https://":                 false,
		"C:\\forms\\register.html": false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFetchURL(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/form":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(formPage))
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=windows-1252")
			_, _ = w.Write([]byte("<html><body><label>Raz\xf3n social</label></body></html>"))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := New(WithHTTPClient(srv.Client()), WithUserAgent("formscan-test"))

	t.Run("html page", func(t *testing.T) {
		page, err := f.Fetch(context.Background(), srv.URL+"/form")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if page.StatusCode != http.StatusOK || page.URL != srv.URL+"/form" {
			t.Errorf("unexpected page %+v", page)
		}
		if ua, _ := gotUA.Load().(string); ua != "formscan-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		if len(page.Hash) != 64 {
			t.Errorf("expected a SHA3-256 hex hash, got %q", page.Hash)
		}
		doc, err := Document(page)
		if err != nil {
			t.Fatalf("Document() error = %v", err)
		}
		if page.Title != "Register a Business" || page.Lang != "en" {
			t.Errorf("title %q lang %q", page.Title, page.Lang)
		}
		if !strings.Contains(PageText(page, doc), "Register a Business") {
			t.Errorf("PageText() = %q", PageText(page, doc))
		}
	})

	t.Run("legacy charset is decoded", func(t *testing.T) {
		page, err := f.Fetch(context.Background(), srv.URL+"/latin1")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !strings.Contains(string(page.Raw), "Razón social") {
			t.Errorf("content not decoded: %q", page.Raw)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
	})

	t.Run("not html", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/json")
		if !errors.Is(err, ErrNotHTML) {
			t.Errorf("expected ErrNotHTML, got %v", err)
		}
	})
}

func TestFetchFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "form.html")
	if err := os.WriteFile(path, []byte(formPage), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		page, err := New().Fetch(context.Background(), path)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if page.Source != path || page.URL != "" || page.StatusCode != 0 {
			t.Errorf("unexpected page %+v", page)
		}
		if string(page.Raw) != formPage {
			t.Error("content changed")
		}
	})

	t.Run("body limit", func(t *testing.T) {
		t.Parallel()

		page, err := New(WithMaxBodySize(10)).Fetch(context.Background(), path)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(page.Raw) != 10 {
			t.Errorf("expected 10 bytes, got %d", len(page.Raw))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := New().Fetch(context.Background(), filepath.Join(dir, "nope.html")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()

		if _, err := New().Fetch(context.Background(), "  "); !errors.Is(err, ErrEmptySource) {
			t.Errorf("expected ErrEmptySource, got %v", err)
		}
	})
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	title, _ := metadata([]byte(formPage), "https://sos.example.gov/register")
	if title != "Register a Business" {
		t.Errorf("title = %q", title)
	}
	if title, site := metadata(nil, ""); title != "" || site != "" {
		t.Errorf("expected empty metadata, got %q %q", title, site)
	}
}
