// Package scanner enumerates the interactive fields of a document.
package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/model"
)

// Stage is the name recorded on errors raised while scanning.
const Stage = "scan"

// fieldSelector matches every element the scanner considers.
const fieldSelector = "input, select, textarea"

// excludedTypes are input types that never carry user data.
var excludedTypes = map[string]struct{}{
	"hidden": {},
	"submit": {},
	"button": {},
	"reset":  {},
	"image":  {},
}

// importantHidden matches names of hidden inputs that track form state
// and are kept even though they are not rendered.
var importantHidden = regexp.MustCompile(`(?i)(csrf|token|step|stage|page|wizard)`)

// Scan returns the visible fields of doc in document order. Hidden inputs
// whose name is on the allow-list are returned without a visibility check.
// A field that cannot be read is skipped and reported in the error slice.
func Scan(doc *dom.Document) ([]model.FieldCandidate, []model.FieldError) {
	var (
		fields []model.FieldCandidate
		errs   []model.FieldError
	)
	if doc == nil {
		return fields, errs
	}

	doc.Query().Find(fieldSelector).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		c, ok, err := inspect(doc, n)
		if err != nil {
			errs = append(errs, model.FieldError{
				Stage:    Stage,
				Position: doc.Position(n),
				Name:     dom.Attr(n, "name"),
				Message:  err.Error(),
			})
			return
		}
		if ok {
			fields = append(fields, c)
		}
	})
	return fields, errs
}

// inspect builds the candidate for n. ok is false when n is excluded.
func inspect(doc *dom.Document, n *html.Node) (c model.FieldCandidate, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inspect field: %v", r)
			ok = false
		}
	}()

	typ := fieldType(n)
	name := dom.Attr(n, "name")

	keepHidden := false
	if _, excluded := excludedTypes[typ]; excluded {
		if typ != "hidden" || !importantHidden.MatchString(name) {
			return c, false, nil
		}
		keepHidden = true
	}
	if !keepHidden && !doc.Visible(n) {
		return c, false, nil
	}

	c = model.FieldCandidate{
		Node:         n,
		Tag:          n.Data,
		Type:         typ,
		Name:         name,
		ID:           dom.Attr(n, "id"),
		Placeholder:  strings.TrimSpace(dom.Attr(n, "placeholder")),
		Autocomplete: strings.ToLower(strings.TrimSpace(dom.Attr(n, "autocomplete"))),
		Required:     dom.HasAttr(n, "required") || strings.EqualFold(dom.Attr(n, "aria-required"), "true"),
		Value:        dom.Attr(n, "value"),
		Hidden:       keepHidden,
		Position:     doc.Position(n),
		Box:          doc.Box(n),
	}

	switch n.DataAtom {
	case atom.Select:
		c.Choices = selectOptions(n)
		for _, o := range c.Choices {
			if o.Checked {
				c.Value = o.Value
				break
			}
		}
	case atom.Textarea:
		c.Value = dom.Text(n)
	}
	return c, true, nil
}

// fieldType returns the lower-cased type of a control. Inputs without a
// valid type attribute are text inputs.
func fieldType(n *html.Node) string {
	if n.DataAtom != atom.Input {
		return n.Data
	}
	t := strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))
	if t == "" {
		return "text"
	}
	return t
}

// selectOptions lists the options of a select element, skipping the
// empty-valued prompt option such as "-- Select --".
func selectOptions(n *html.Node) []model.Option {
	var opts []model.Option
	goquery.NewDocumentFromNode(n).Find("option").Each(func(_ int, s *goquery.Selection) {
		o := s.Get(0)
		label := dom.CollapseSpace(dom.Attr(o, "label"))
		if label == "" {
			label = dom.Text(o)
		}
		value, hasValue := s.Attr("value")
		if !hasValue {
			value = label
		}
		if strings.TrimSpace(value) == "" {
			return
		}
		opts = append(opts, model.Option{
			Value:   value,
			Label:   label,
			Checked: dom.HasAttr(o, "selected"),
		})
	})
	return opts
}
