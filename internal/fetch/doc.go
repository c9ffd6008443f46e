// Package fetch acquires the HTML document a detection pass runs on.
//
// A source is either an http(s) URL or a local file path. Content is
// decoded to UTF-8, size limited, fingerprinted and annotated with the
// page title and site name.
package fetch
