package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/model"
)

// ErrNilNode is returned when a document is built from a nil node.
var ErrNilNode = errors.New("dom: nil node")

// Document is a parsed HTML document with document-order indexing and a
// layout. The zero value is not usable; create one with Parse or
// NewDocument.
type Document struct {
	root     *html.Node
	query    *goquery.Document
	order    map[*html.Node]int
	elements []*html.Node
	byID     map[string][]*html.Node
	labelFor map[string][]*html.Node
	layout   Layout
}

// Parse reads an HTML document from r. The content is converted to UTF-8
// using contentType and the document's own charset declarations. The
// document gets a StaticLayout.
func Parse(r io.Reader, contentType string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseBytes(data, contentType)
}

// ParseBytes is like Parse for an in-memory document.
func ParseBytes(data []byte, contentType string) (*Document, error) {
	decoded, _ := DecodeUTF8(data, contentType)
	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewDocument(root)
}

// ParseString parses an HTML string that is already UTF-8.
func ParseString(s string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewDocument(root)
}

// NewDocument indexes an existing tree rooted at root. The tree must not
// be modified while the Document is in use.
func NewDocument(root *html.Node) (*Document, error) {
	if root == nil {
		return nil, ErrNilNode
	}

	d := &Document{
		root:     root,
		query:    goquery.NewDocumentFromNode(root),
		order:    make(map[*html.Node]int),
		byID:     make(map[string][]*html.Node),
		labelFor: make(map[string][]*html.Node),
	}
	d.index()
	d.layout = NewStaticLayout(d)
	return d, nil
}

// index assigns pre-order positions to every element and builds the id and
// label[for] lookups.
func (d *Document) index() {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.order[n] = len(d.elements)
			d.elements = append(d.elements, n)
			if id := Attr(n, "id"); id != "" {
				d.byID[id] = append(d.byID[id], n)
			}
			if n.DataAtom == atom.Label {
				if target := strings.TrimSpace(Attr(n, "for")); target != "" {
					d.labelFor[target] = append(d.labelFor[target], n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
}

// Root returns the root node the document was built from.
func (d *Document) Root() *html.Node {
	return d.root
}

// Query returns the goquery view of the document.
func (d *Document) Query() *goquery.Document {
	return d.query
}

// Elements returns every element in document order.
func (d *Document) Elements() []*html.Node {
	return d.elements
}

// Position returns the document-order index of n. Text nodes take the
// position of their parent element. Unknown nodes return -1.
func (d *Document) Position(n *html.Node) int {
	for ; n != nil; n = n.Parent {
		if pos, ok := d.order[n]; ok {
			return pos
		}
	}
	return -1
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *html.Node {
	if nodes := d.byID[id]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// LabelsFor returns every label element whose for attribute equals id.
func (d *Document) LabelsFor(id string) []*html.Node {
	if id == "" {
		return nil
	}
	return d.labelFor[id]
}

// Layout returns the document's layout.
func (d *Document) Layout() Layout {
	return d.layout
}

// SetLayout replaces the document's layout.
func (d *Document) SetLayout(l Layout) {
	if l != nil {
		d.layout = l
	}
}

// Box returns the bounding box of n.
func (d *Document) Box(n *html.Node) model.Rect {
	return d.layout.Box(n)
}

// Visible reports whether n is rendered with a non-empty box and is not
// hidden by display, visibility or opacity.
func (d *Document) Visible(n *html.Node) bool {
	if n == nil {
		return false
	}
	if d.layout.Box(n).Empty() {
		return false
	}
	return !d.layout.Style(n).Hidden()
}

// Attached reports whether the document's root belongs to a document
// tree. A detached element has no path to a document node.
func (d *Document) Attached() bool {
	if d == nil || d.root == nil {
		return false
	}
	top := d.root
	for top.Parent != nil {
		top = top.Parent
	}
	return top.Type == html.DocumentNode
}

// Title returns the trimmed text of the first title element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.query.Find("title").First().Text())
}

// Lang returns the lang attribute of the html element.
func (d *Document) Lang() string {
	lang, _ := d.query.Find("html").First().Attr("lang")
	return strings.TrimSpace(lang)
}

// Headline returns the text used for jurisdiction detection: the title,
// the site name meta tag and the top-level headings.
func (d *Document) Headline() string {
	parts := []string{d.Title()}
	if site, ok := d.query.Find(`meta[property="og:site_name"]`).First().Attr("content"); ok {
		parts = append(parts, site)
	}
	d.query.Find("h1, h2").Each(func(_ int, s *goquery.Selection) {
		if len(parts) < 8 {
			parts = append(parts, s.Text())
		}
	})
	return CollapseSpace(strings.Join(parts, " "))
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// ClassTokens returns the lower-cased class names of n.
func ClassTokens(n *html.Node) []string {
	return strings.Fields(strings.ToLower(Attr(n, "class")))
}

// IsElement reports whether n is an element with one of the given atoms.
func IsElement(n *html.Node, atoms ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range atoms {
		if n.DataAtom == a {
			return true
		}
	}
	return false
}

// Closest returns the nearest ancestor of n (excluding n) for which match
// returns true, or nil.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return p
		}
	}
	return nil
}

// Contains reports whether ancestor contains n or is n.
func Contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// IsControl reports whether n is a form control whose own text must not
// leak into labels.
func IsControl(n *html.Node) bool {
	return IsElement(n, atom.Input, atom.Select, atom.Textarea, atom.Button, atom.Option, atom.Datalist)
}

// Text returns the text content of n with whitespace collapsed.
func Text(n *html.Node) string {
	return TextExcluding(n, nil)
}

// TextExcluding returns the text content of n, skipping subtrees for which
// skip returns true. Script and style content is always skipped.
func TextExcluding(n *html.Node, skip func(*html.Node) bool) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if IsElement(c, atom.Script, atom.Style, atom.Template, atom.Noscript) {
				return
			}
			if skip != nil && c != n && skip(c) {
				return
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return CollapseSpace(b.String())
}

// CollapseSpace trims s and replaces runs of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
