package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("injects cookie and headers", func(t *testing.T) {
		t.Parallel()

		var gotCookie, gotToken atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCookie.Store(r.Header.Get("Cookie"))
			gotToken.Store(r.Header.Get("X-Portal-Token"))
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(formPage))
		}))
		t.Cleanup(srv.Close)

		client, err := NewClient(ClientOptions{
			Cookie:  "session_id=abc",
			Headers: map[string]string{"X-Portal-Token": "t1"},
			Timeout: 5 * time.Second,
		})
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}

		page, err := New(WithHTTPClient(client)).Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if page.Title != "Register a Business" {
			t.Errorf("title = %q", page.Title)
		}
		if gotCookie.Load() != "session_id=abc" || gotToken.Load() != "t1" {
			t.Errorf("cookie = %v, token = %v", gotCookie.Load(), gotToken.Load())
		}
		if client.Timeout != 5*time.Second || client.Jar == nil {
			t.Errorf("unexpected client %+v", client)
		}
	})

	t.Run("accepts a proxy address without connecting", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(ClientOptions{Proxy: "127.0.0.1:9050"}); err != nil {
			t.Errorf("NewClient() error = %v", err)
		}
	})

	t.Run("rejects invalid proxy addresses", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"localhost", ":9050", "host:0", "host:70000", "host:port", "socks5://host:1080"} {
			if _, err := NewClient(ClientOptions{Proxy: addr}); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewClient(%q) error = %v, want ErrInvalidProxyAddress", addr, err)
			}
		}
	})
}

func TestParseHeaders(t *testing.T) {
	t.Parallel()

	got, err := ParseHeaders([]string{"x-portal-token: abc", "Accept-Language:es"})
	if err != nil {
		t.Fatalf("ParseHeaders() error = %v", err)
	}
	want := map[string]string{"X-Portal-Token": "abc", "Accept-Language": "es"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	if got, err := ParseHeaders(nil); err != nil || got != nil {
		t.Errorf("ParseHeaders(nil) = %v, %v", got, err)
	}
	if _, err := ParseHeaders([]string{"no separator"}); err == nil {
		t.Error("expected an error for a header without a colon")
	}
}
