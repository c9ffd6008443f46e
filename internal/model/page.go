package model

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// MaxPageSize is the maximum size of raw page content to keep.
// Larger pages are truncated to this size.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page is an acquired HTML document together with its metadata.
type Page struct {
	// Source is what the user asked for: a URL or a file path.
	Source string `json:"source"`

	// URL is the final URL after redirects. Empty for local files.
	URL string `json:"url,omitempty"`

	// StatusCode is the HTTP status code. Zero for local files.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the declared MIME type including parameters.
	ContentType string `json:"content_type,omitempty"`

	// Title is the document title.
	Title string `json:"title,omitempty"`

	// SiteName is the publishing site name, when the page declares one.
	SiteName string `json:"site_name,omitempty"`

	// Lang is the value of the html lang attribute.
	Lang string `json:"lang,omitempty"`

	// Raw contains the document bytes, decoded to UTF-8.
	Raw []byte `json:"-"`

	// Hash is the SHA3-256 fingerprint of Raw.
	// Used to reuse stored results for unchanged pages.
	Hash string `json:"hash"`

	// FetchedAt is when the page was acquired.
	FetchedAt time.Time `json:"fetched_at"`

	// Rendered is true when the layout came from a real browser.
	Rendered bool `json:"rendered,omitempty"`
}

// ComputeHash calculates and sets the fingerprint of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha3.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the content type indicates HTML.
// An empty content type is treated as HTML, as for local files.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(p.ContentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}

// TruncateRaw ensures the raw content doesn't exceed MaxPageSize.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}
