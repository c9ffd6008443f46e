package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/nao1215/formscan/internal/config"
	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/model"
)

var (
	// ErrHTTPStatus is returned for responses with a 4xx or 5xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when the content type is not HTML.
	ErrNotHTML = errors.New("content is not HTML")

	// ErrEmptySource is returned for an empty source string.
	ErrEmptySource = errors.New("empty source")
)

// Fetcher loads pages from URLs and files.
type Fetcher struct {
	client *http.Client

	userAgent string

	// maxBodySize limits how many bytes of a body are read.
	maxBodySize int64

	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header for HTTP requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum number of bytes read from a source.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: config.DefaultTimeout}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// IsURL reports whether source is an http or https URL.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Fetch loads source, which is a URL or a file path.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*model.Page, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrEmptySource
	}
	if IsURL(source) {
		return f.fetchURL(ctx, source)
	}
	return f.readFile(source)
}

func (f *Fetcher) fetchURL(ctx context.Context, pageURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := &model.Page{
		Source:      pageURL,
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !page.IsHTML() {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, page.ContentType)
	}
	f.finish(page, body)

	f.logger.Debug("page fetched",
		"url", page.URL,
		"status", page.StatusCode,
		"bytes", len(page.Raw),
	)
	return page, nil
}

func (f *Fetcher) readFile(path string) (*model.Page, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	page := &model.Page{Source: path}
	f.finish(page, body)
	return page, nil
}

// finish decodes body into page and fills the derived fields.
func (f *Fetcher) finish(page *model.Page, body []byte) {
	page.Raw, _ = dom.DecodeUTF8(body, page.ContentType)
	page.TruncateRaw()
	page.ComputeHash()
	page.FetchedAt = time.Now()
	page.Title, page.SiteName = metadata(page.Raw, page.URL)
}

// metadata extracts the article title and site name. Pages without
// readable content yield empty strings.
func metadata(raw []byte, pageURL string) (title, siteName string) {
	u, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		u = &url.URL{}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(raw), u)
	if err != nil {
		return "", ""
	}
	return dom.CollapseSpace(article.Title), dom.CollapseSpace(article.SiteName)
}

// Document parses the page into a document. The page content is already
// UTF-8.
func Document(page *model.Page) (*dom.Document, error) {
	doc, err := dom.ParseBytes(page.Raw, "text/html; charset=utf-8")
	if err != nil {
		return nil, err
	}
	if page.Title == "" {
		page.Title = doc.Title()
	}
	page.Lang = doc.Lang()
	return doc, nil
}

// PageText returns the text used for state detection: the page title,
// the site name and the document headline.
func PageText(page *model.Page, doc *dom.Document) string {
	return dom.CollapseSpace(strings.Join([]string{page.Title, page.SiteName, doc.Headline()}, " "))
}
