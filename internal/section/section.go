// Package section assigns classified fields to the headings above them.
package section

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/model"
)

// DefaultGap is the largest vertical distance, in pixels, between two
// consecutive members of one section.
const DefaultGap = 500.0

// Titles of the synthetic sections.
const (
	TrailingTitle = "Additional Information"
	ImplicitTitle = "Form Fields"
)

// headerXPath selects every element that may title a section.
const headerXPath = `//h1 | //h2 | //h3 | //h4 | //h5 | //h6 | //legend | //*[@role='heading']` +
	` | //*[contains(@class,'heading') or contains(@class,'section-title') or contains(@class,'section-header') or contains(@class,'panel-title')]`

// Header is a qualifying section header.
type Header struct {
	Node     *html.Node
	Title    string
	Position int
	Box      model.Rect
}

// Options configure section assignment.
type Options struct {
	// Gap is the largest vertical gap inside one section. Zero means
	// DefaultGap.
	Gap float64
}

// Headers returns the qualifying headers of doc in document order.
// Invisible headers, headers inside site chrome, headers wrapping controls,
// the page title heading and headers that wrap another header are left out.
func Headers(doc *dom.Document) ([]Header, error) {
	nodes, err := htmlquery.QueryAll(doc.Root(), headerXPath)
	if err != nil {
		return nil, fmt.Errorf("query headers: %w", err)
	}

	candidates := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode && !slices.Contains(candidates, n) {
			candidates = append(candidates, n)
		}
	}

	headers := make([]Header, 0, len(candidates))
	for _, n := range candidates {
		if !qualifies(doc, n, candidates) {
			continue
		}
		title := label.ElementText(n)
		if !label.Valid(title) {
			continue
		}
		headers = append(headers, Header{
			Node:     n,
			Title:    title,
			Position: doc.Position(n),
			Box:      doc.Box(n),
		})
	}
	slices.SortFunc(headers, func(a, b Header) int { return a.Position - b.Position })
	return headers, nil
}

func qualifies(doc *dom.Document, n *html.Node, candidates []*html.Node) bool {
	if !doc.Visible(n) || hasControl(n) || inSiteChrome(n) || isPageTitle(n) {
		return false
	}
	for _, other := range candidates {
		if other != n && dom.Contains(n, other) {
			return false
		}
	}
	return true
}

// isPageTitle reports whether n is the h1 naming the whole page, such as
// "Business Registration Application".
func isPageTitle(n *html.Node) bool {
	if n.DataAtom != atom.H1 {
		return false
	}
	text := strings.ToLower(dom.Text(n))
	return strings.Contains(text, "business") && strings.Contains(text, "registration")
}

var chromeRoles = map[string]struct{}{
	"banner":      {},
	"navigation":  {},
	"contentinfo": {},
}

// inSiteChrome reports whether n sits in the site header, navigation or
// footer.
func inSiteChrome(n *html.Node) bool {
	return dom.Closest(n, func(p *html.Node) bool {
		if dom.IsElement(p, atom.Header, atom.Nav, atom.Footer) {
			return true
		}
		_, ok := chromeRoles[strings.ToLower(dom.Attr(p, "role"))]
		return ok
	}) != nil
}

func hasControl(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c, atom.Input, atom.Select, atom.Textarea) || hasControl(c) {
			return true
		}
	}
	return false
}

// Detect partitions fields into sections. Each header captures the
// unassigned fields after it and before the next header, in document
// order, until the vertical gap from the previously captured element
// exceeds the limit. Fields no header captured form one trailing synthetic
// section, which is the only section when there are no headers. Empty
// sections are dropped.
func Detect(doc *dom.Document, fields []model.ClassifiedField, opts Options) ([]model.Section, error) {
	sections := make([]model.Section, 0)
	if len(fields) == 0 {
		return sections, nil
	}
	if opts.Gap <= 0 {
		opts.Gap = DefaultGap
	}

	headers, err := Headers(doc)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(fields))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return fields[a].Position - fields[b].Position })

	assigned := make([]bool, len(fields))
	for hi, h := range headers {
		next := math.MaxInt
		if hi+1 < len(headers) {
			next = headers[hi+1].Position
		}

		s := model.Section{Title: h.Title, Fields: make([]int, 0)}
		prev := h.Box
		for _, i := range order {
			f := fields[i]
			if assigned[i] || f.Position <= h.Position {
				continue
			}
			if f.Position >= next {
				break
			}
			if !prev.Empty() && !f.Box.Empty() && f.Box.Y-prev.Bottom() > opts.Gap {
				break
			}
			assigned[i] = true
			s.Fields = append(s.Fields, i)
			if !f.Box.Empty() {
				prev = f.Box
			}
		}
		if len(s.Fields) > 0 {
			sections = append(sections, s)
		}
	}

	rest := model.Section{Title: TrailingTitle, Synthetic: true, Fields: make([]int, 0)}
	if len(sections) == 0 {
		rest.Title = ImplicitTitle
	}
	for _, i := range order {
		if !assigned[i] {
			rest.Fields = append(rest.Fields, i)
		}
	}
	if len(rest.Fields) > 0 {
		sections = append(sections, rest)
	}
	return sections, nil
}
