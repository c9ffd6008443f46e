package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/formscan/internal/model"
)

// ErrSnapshotMismatch is returned when captured element boxes cannot be
// matched to the parsed document.
var ErrSnapshotMismatch = errors.New("dom: snapshot does not match document")

// ElementBox is the geometry and computed style of one element as reported
// by a browser, in document order.
type ElementBox struct {
	Tag        string  `json:"tag"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Opacity    float64 `json:"opacity"`
}

// SnapshotLayout serves boxes captured from a rendered page.
type SnapshotLayout struct {
	boxes  map[*html.Node]model.Rect
	styles map[*html.Node]Style
}

// NewSnapshotLayout matches boxes to the elements of d by document order.
// Every element must have a box with the same tag name.
func NewSnapshotLayout(d *Document, boxes []ElementBox) (*SnapshotLayout, error) {
	elements := d.Elements()
	if len(elements) != len(boxes) {
		return nil, fmt.Errorf("%w: %d elements, %d boxes", ErrSnapshotMismatch, len(elements), len(boxes))
	}

	l := &SnapshotLayout{
		boxes:  make(map[*html.Node]model.Rect, len(elements)),
		styles: make(map[*html.Node]Style, len(elements)),
	}
	for i, n := range elements {
		b := boxes[i]
		if !strings.EqualFold(b.Tag, n.Data) {
			return nil, fmt.Errorf("%w: element %d is <%s>, box is <%s>", ErrSnapshotMismatch, i, n.Data, b.Tag)
		}
		l.boxes[n] = model.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}

		// Computed opacity is not inherited; the effective value is the
		// product along the ancestor chain. Parents precede children in
		// document order, so the parent style is already known.
		parent := DefaultStyle
		if p, ok := l.styles[n.Parent]; ok {
			parent = p
		}
		s := Style{Display: b.Display, Visibility: b.Visibility, Opacity: b.Opacity * parent.Opacity}
		if parent.Display == "none" {
			s.Display = "none"
		}
		l.styles[n] = s
	}
	return l, nil
}

// Box implements Layout. Text nodes use their parent's box.
func (l *SnapshotLayout) Box(n *html.Node) model.Rect {
	if n == nil {
		return model.Rect{}
	}
	if n.Type != html.ElementNode {
		n = n.Parent
	}
	return l.boxes[n]
}

// Style implements Layout.
func (l *SnapshotLayout) Style(n *html.Node) Style {
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
