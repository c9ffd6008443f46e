// Package dom holds the parsed document a detection pass reads from.
//
// A Document wraps the x/net/html tree with a goquery view, a pre-order
// element index that defines document order, and a Layout that answers
// geometry and visibility questions. Two layouts exist: StaticLayout
// estimates boxes from markup and inline styles, and SnapshotLayout uses
// boxes captured from a real browser.
//
// The tree is treated as read-only. Nothing in this package writes markers
// into nodes, so any number of passes may read one Document.
package dom
