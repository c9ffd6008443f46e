package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxyAddress is returned when a proxy address is not in
// "host:port" form.
var ErrInvalidProxyAddress = errors.New("invalid proxy address (want host:port)")

// ClientOptions configure the HTTP client used for URL sources.
type ClientOptions struct {
	// Proxy is a SOCKS5 proxy in "host:port" form. Empty means direct.
	Proxy string

	// Cookie is a raw Cookie header sent with every request, for pages
	// behind a portal login.
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	Timeout time.Duration
}

// NewClient returns an HTTP client for opts. It does not contact the
// proxy.
func NewClient(opts ClientOptions) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport

	if opts.Proxy != "" {
		if !validProxyAddress(opts.Proxy) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, opts.Proxy)
		}
		dialer, err := proxy.SOCKS5("tcp", opts.Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = transport
	if opts.Cookie != "" || len(opts.Headers) > 0 {
		rt = &headerTransport{base: transport, cookie: opts.Cookie, headers: opts.Headers}
	}
	return &http.Client{Transport: rt, Jar: jar, Timeout: opts.Timeout}, nil
}

// validProxyAddress reports whether address is host:port with a port in
// 1-65535.
func validProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ParseHeaders parses "Name: value" strings into a header map.
func ParseHeaders(lines []string) (map[string]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want \"Name: value\")", line)
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// headerTransport adds a cookie and headers to every request, redirects
// included.
type headerTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
