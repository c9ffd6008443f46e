package dom

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/model"
)

// Layout answers geometry and visibility questions about document nodes.
type Layout interface {
	// Box returns the bounding box of n. Unrendered nodes have an empty box.
	Box(n *html.Node) model.Rect

	// Style returns the effective style of n.
	Style(n *html.Node) Style
}

// Metrics of the static layout estimator, in CSS pixels.
const (
	ViewportWidth   = 1280.0
	LineHeight      = 20.0
	CharWidth       = 7.0
	inlineGap       = 8.0
	headingMargin   = 16.0
	paragraphMargin = 8.0
	fieldsetPadding = 12.0
	maxCellWidth    = 320.0
)

// StaticLayout estimates boxes from markup alone. It flows inline content
// left to right, starts a new line for every block, lays table cells out
// side by side and sizes controls by type. The estimate is coarse but
// keeps document order and relative distances, which is what label and
// section heuristics rely on.
type StaticLayout struct {
	boxes  map[*html.Node]model.Rect
	styles map[*html.Node]Style
}

// NewStaticLayout computes the layout of every node in d.
func NewStaticLayout(d *Document) *StaticLayout {
	l := &StaticLayout{
		boxes:  make(map[*html.Node]model.Rect),
		styles: make(map[*html.Node]Style),
	}
	c := &cursor{left: 0, right: ViewportWidth}
	l.layout(d.Root(), c, DefaultStyle)
	return l
}

// Box implements Layout. Text nodes without a box of their own fall back
// to their parent's box.
func (l *StaticLayout) Box(n *html.Node) model.Rect {
	if n == nil {
		return model.Rect{}
	}
	if r, ok := l.boxes[n]; ok {
		return r
	}
	if n.Type == html.TextNode && n.Parent != nil {
		return l.boxes[n.Parent]
	}
	return model.Rect{}
}

// Style implements Layout.
func (l *StaticLayout) Style(n *html.Node) Style {
	if n == nil {
		return DefaultStyle
	}
	if n.Type != html.ElementNode {
		n = n.Parent
	}
	if s, ok := l.styles[n]; ok {
		return s
	}
	return DefaultStyle
}

type cursor struct {
	left, right float64
	x, y        float64
	line        float64
}

func (c *cursor) breakLine() {
	if c.x > c.left {
		c.y += c.line
		c.x = c.left
		c.line = 0
	}
}

func (c *cursor) place(w, h float64) model.Rect {
	if avail := c.right - c.left; w > avail {
		w = avail
	}
	if c.x > c.left && c.x+w > c.right {
		c.breakLine()
	}
	r := model.Rect{X: c.x, Y: c.y, Width: w, Height: h}
	c.x += w + inlineGap
	if h > c.line {
		c.line = h
	}
	return r
}

// layout places n and its descendants and returns the box of n.
func (l *StaticLayout) layout(n *html.Node, c *cursor, parent Style) model.Rect {
	switch n.Type {
	case html.DocumentNode:
		var r model.Rect
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			r = r.Union(l.layout(ch, c, parent))
		}
		return r
	case html.TextNode:
		if parent.Display == "none" {
			return model.Rect{}
		}
		r := l.text(n, c)
		if !r.Empty() {
			l.boxes[n] = r
		}
		return r
	case html.ElementNode:
	default:
		return model.Rect{}
	}

	style, decls := computeStyle(n, parent)
	l.styles[n] = style
	if style.Display == "none" {
		l.hideSubtree(n, style)
		return model.Rect{}
	}

	var r model.Rect
	switch {
	case n.DataAtom == atom.Br:
		if c.x == c.left {
			c.y += LineHeight
		}
		c.breakLine()
		return model.Rect{}
	case isReplaced(n):
		w, h := controlSize(n, decls)
		if w <= 0 || h <= 0 {
			return model.Rect{}
		}
		r = c.place(w, h)
		l.hideSubtree(n, Style{Display: "none", Visibility: style.Visibility, Opacity: style.Opacity})
	case style.Display == "table-cell":
		r = l.cell(n, c, style)
	case style.Display == "inline" || style.Display == "inline-block" || style.Display == "inline-flex":
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			r = r.Union(l.layout(ch, c, style))
		}
	default:
		r = l.block(n, c, style)
	}

	if !r.Empty() {
		l.boxes[n] = r
	}
	return r
}

// block lays out a block-level element on its own lines.
func (l *StaticLayout) block(n *html.Node, c *cursor, style Style) model.Rect {
	margin := blockMargin(n)
	pad := 0.0
	if n.DataAtom == atom.Fieldset {
		pad = fieldsetPadding
	}

	c.breakLine()
	c.y += margin
	startY := c.y
	left, right := c.left, c.right

	c.left, c.right = left+pad, right-pad
	c.x = c.left
	c.y += pad
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		l.layout(ch, c, style)
	}
	c.breakLine()
	c.left, c.right = left, right
	c.x = c.left

	height := c.y - startY
	if height > pad {
		c.y += pad
		height += pad
	} else {
		c.y = startY - margin
		height = 0
	}
	r := model.Rect{X: left, Y: startY, Width: right - left, Height: height}
	if height > 0 {
		c.y += margin
	}
	return r
}

// cell lays out a table cell beside its preceding siblings.
func (l *StaticLayout) cell(n *html.Node, c *cursor, style Style) model.Rect {
	cols := 0
	if n.Parent != nil {
		for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
			if IsElement(s, atom.Td, atom.Th) {
				cols += colspan(s)
			}
		}
	}
	if cols == 0 {
		cols = 1
	}
	width := math.Min(maxCellWidth, (c.right-c.left)/float64(cols)) * float64(colspan(n))

	sub := &cursor{left: c.x, right: c.x + width, x: c.x, y: c.y}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		l.layout(ch, sub, style)
	}
	sub.breakLine()

	height := math.Max(sub.y-c.y, LineHeight)
	r := model.Rect{X: c.x, Y: c.y, Width: width, Height: height}
	c.x += width
	if height > c.line {
		c.line = height
	}
	return r
}

// text places a text run, wrapping it over several lines when needed.
func (l *StaticLayout) text(n *html.Node, c *cursor) model.Rect {
	s := CollapseSpace(n.Data)
	if s == "" {
		return model.Rect{}
	}
	w := float64(utf8.RuneCountInString(s)) * CharWidth
	avail := c.right - c.left
	if w <= avail {
		return c.place(w, LineHeight)
	}
	c.breakLine()
	lines := math.Ceil(w / avail)
	r := model.Rect{X: c.left, Y: c.y, Width: avail, Height: lines * LineHeight}
	c.y += r.Height
	return r
}

func (l *StaticLayout) hideSubtree(n *html.Node, style Style) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode {
			l.styles[ch] = style
		}
		l.hideSubtree(ch, style)
	}
}

func blockMargin(n *html.Node) float64 {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return headingMargin
	case atom.P, atom.Fieldset, atom.Table, atom.Ul, atom.Ol, atom.Dl:
		return paragraphMargin
	}
	return 0
}

func colspan(n *html.Node) int {
	if v, err := strconv.Atoi(strings.TrimSpace(Attr(n, "colspan"))); err == nil && v > 1 {
		return v
	}
	return 1
}

// isReplaced reports whether n is drawn as an opaque box whose children
// are not laid out as page content.
func isReplaced(n *html.Node) bool {
	return IsElement(n, atom.Input, atom.Select, atom.Textarea, atom.Button, atom.Img)
}

// controlSize returns the box size of a replaced element. Explicit pixel
// sizes in the inline style win.
func controlSize(n *html.Node, decls map[string]string) (float64, float64) {
	var w, h float64
	switch n.DataAtom {
	case atom.Input:
		switch strings.ToLower(Attr(n, "type")) {
		case "checkbox", "radio":
			w, h = 16, 16
		case "submit", "button", "reset":
			w, h = buttonWidth(Attr(n, "value")), 28
		case "image":
			w, h = 96, 28
		case "file":
			w, h = 240, 24
		case "range", "color":
			w, h = 120, 24
		default:
			w, h = 200, 24
		}
	case atom.Select:
		w, h = 200, 24
		if HasAttr(n, "multiple") {
			h = 80
		}
	case atom.Textarea:
		w, h = 300, 60
		if rows, err := strconv.Atoi(Attr(n, "rows")); err == nil && rows > 0 {
			h = float64(rows) * LineHeight
		}
	case atom.Button:
		w, h = buttonWidth(Text(n)), 28
	case atom.Img:
		w, h = 100, 100
		if v, err := strconv.ParseFloat(Attr(n, "width"), 64); err == nil {
			w = v
		}
		if v, err := strconv.ParseFloat(Attr(n, "height"), 64); err == nil {
			h = v
		}
	}
	if v, ok := pixels(decls["width"]); ok {
		w = v
	}
	if v, ok := pixels(decls["height"]); ok {
		h = v
	}
	return w, h
}

func buttonWidth(label string) float64 {
	return math.Max(64, float64(utf8.RuneCountInString(label))*CharWidth+24)
}
