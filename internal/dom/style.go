package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Style is the effective visibility state of a node. Display "none" on
// any ancestor is propagated to descendants, and Opacity is the product
// of the node's and its ancestors' opacity.
type Style struct {
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Opacity    float64 `json:"opacity"`
}

// DefaultStyle is the style of a rendered, visible node.
var DefaultStyle = Style{Display: "inline", Visibility: "visible", Opacity: 1}

// Hidden reports whether the style keeps the node from being seen.
func (s Style) Hidden() bool {
	switch {
	case s.Display == "none":
		return true
	case s.Visibility == "hidden" || s.Visibility == "collapse":
		return true
	case s.Opacity <= 0:
		return true
	}
	return false
}

// hiddenClasses are utility classes that common CSS frameworks map to
// display:none.
var hiddenClasses = map[string]struct{}{
	"hidden":    {},
	"d-none":    {},
	"hide":      {},
	"is-hidden": {},
	"invisible": {},
	"ng-hide":   {},
}

// nonRendered elements never produce boxes.
var nonRendered = map[atom.Atom]struct{}{
	atom.Head:     {},
	atom.Script:   {},
	atom.Style:    {},
	atom.Template: {},
	atom.Noscript: {},
	atom.Title:    {},
	atom.Meta:     {},
	atom.Link:     {},
	atom.Base:     {},
	atom.Datalist: {},
}

// parseInlineStyle splits a style attribute into lower-cased declarations.
func parseInlineStyle(s string) map[string]string {
	decls := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if key != "" {
			decls[key] = val
		}
	}
	return decls
}

// computeStyle returns the effective style of element n given its parent's
// effective style, and the inline declarations of n.
func computeStyle(n *html.Node, parent Style) (Style, map[string]string) {
	decls := parseInlineStyle(Attr(n, "style"))

	s := Style{
		Display:    defaultDisplay(n),
		Visibility: parent.Visibility,
		Opacity:    parent.Opacity,
	}

	if d, ok := decls["display"]; ok && d != "" {
		s.Display = d
	}
	if v, ok := decls["visibility"]; ok && v != "" && v != "inherit" {
		s.Visibility = v
	}
	if o, ok := decls["opacity"]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(o, "%"), 64); err == nil {
			if strings.HasSuffix(o, "%") {
				f /= 100
			}
			s.Opacity *= f
		}
	}

	if HasAttr(n, "hidden") {
		s.Display = "none"
	}
	for _, c := range ClassTokens(n) {
		if _, ok := hiddenClasses[c]; ok {
			s.Display = "none"
			break
		}
	}
	if n.DataAtom == atom.Input && strings.EqualFold(Attr(n, "type"), "hidden") {
		s.Display = "none"
	}
	if _, ok := nonRendered[n.DataAtom]; ok {
		s.Display = "none"
	}
	if parent.Display == "none" {
		s.Display = "none"
	}
	return s, decls
}

// defaultDisplay returns the user-agent display value for n.
func defaultDisplay(n *html.Node) string {
	switch n.DataAtom {
	case atom.Td, atom.Th:
		return "table-cell"
	case atom.Tr:
		return "table-row"
	case atom.Input, atom.Select, atom.Textarea, atom.Button, atom.Img:
		return "inline-block"
	case atom.Br:
		return "break"
	}
	if _, ok := blockElements[n.DataAtom]; ok {
		return "block"
	}
	return "inline"
}

// blockElements start and end a line.
var blockElements = map[atom.Atom]struct{}{
	atom.Html: {}, atom.Body: {}, atom.Div: {}, atom.P: {}, atom.Form: {},
	atom.Fieldset: {}, atom.Legend: {}, atom.H1: {}, atom.H2: {}, atom.H3: {},
	atom.H4: {}, atom.H5: {}, atom.H6: {}, atom.Section: {}, atom.Article: {},
	atom.Header: {}, atom.Footer: {}, atom.Nav: {}, atom.Main: {}, atom.Aside: {},
	atom.Ul: {}, atom.Ol: {}, atom.Li: {}, atom.Dl: {}, atom.Dt: {}, atom.Dd: {},
	atom.Table: {}, atom.Thead: {}, atom.Tbody: {}, atom.Tfoot: {}, atom.Caption: {},
	atom.Pre: {}, atom.Blockquote: {}, atom.Hr: {}, atom.Address: {}, atom.Figure: {},
	atom.Figcaption: {}, atom.Details: {}, atom.Summary: {}, atom.Center: {},
}

// pixels parses a CSS length in px. ok is false for anything else.
func pixels(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "0" {
		return 0, true
	}
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
