// Package group collapses radio and checkbox groups into single logical
// fields and labels every remaining standalone field.
package group

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/model"
)

// Stage is the name recorded on errors raised while grouping.
const Stage = "group"

// Scores given to group labels by source.
const (
	ScoreLegend         = 90
	ScoreAriaLabelledBy = 85
	ScorePreceding      = 80
	ScoreName           = 30
)

// containerDepth bounds the ancestor walk looking for a checkbox container.
const containerDepth = 4

// precedingDepth bounds the ancestor walk looking for a group heading.
const precedingDepth = 3

type kind int

const (
	kindRadio kind = iota + 1
	kindCheckboxArray
	kindCheckboxContainer
)

// key identifies one group. scope is the form for name-keyed groups and
// the container element for container groups.
type key struct {
	kind  kind
	scope *html.Node
	name  string
}

// Aggregator builds the field list of one pass.
type Aggregator struct {
	doc      *dom.Document
	resolver *label.Resolver
}

// New returns an Aggregator reading doc and labelling with r.
func New(doc *dom.Document, r *label.Resolver) *Aggregator {
	return &Aggregator{doc: doc, resolver: r}
}

// Aggregate turns candidates into labelled fields in document order. Each
// radio or checkbox group becomes exactly one field with IsGroup set; its
// members never appear on their own. A field that fails is skipped and
// reported in the error slice.
func (a *Aggregator) Aggregate(candidates []model.FieldCandidate) ([]model.ClassifiedField, []model.FieldError) {
	var (
		fields    = make([]model.ClassifiedField, 0, len(candidates))
		errs      []model.FieldError
		groups    = a.plan(candidates)
		processed = make(map[*html.Node]struct{}, len(candidates))
	)

	for i, c := range candidates {
		if _, done := processed[c.Node]; done {
			continue
		}

		members := []model.FieldCandidate{c}
		if k, ok := groups.keyOf[i]; ok {
			members = groups.members[k]
		}
		// Every member is marked before the group is built, so a failing
		// group still never reappears as standalone fields.
		for _, m := range members {
			processed[m.Node] = struct{}{}
		}

		f, err := a.build(members, groups.container[groups.keyOf[i]])
		if err != nil {
			errs = append(errs, model.FieldError{
				Stage:    Stage,
				Position: c.Position,
				Name:     c.Name,
				Message:  err.Error(),
			})
			continue
		}
		fields = append(fields, f)
	}
	return fields, errs
}

// plan is the grouping decided for one candidate list.
type plan struct {
	keyOf     map[int]key
	members   map[key][]model.FieldCandidate
	container map[key]*html.Node
}

func (a *Aggregator) plan(candidates []model.FieldCandidate) plan {
	p := plan{
		keyOf:     make(map[int]key),
		members:   make(map[key][]model.FieldCandidate),
		container: make(map[key]*html.Node),
	}

	for i, c := range candidates {
		if c.Node == nil {
			continue
		}
		var k key
		switch c.Type {
		case "radio":
			if c.Name == "" {
				continue
			}
			k = key{kind: kindRadio, scope: formOf(c.Node), name: c.Name}
		case "checkbox":
			if strings.HasSuffix(c.Name, "[]") {
				k = key{kind: kindCheckboxArray, scope: formOf(c.Node), name: c.Name}
				break
			}
			box := checkboxContainer(c.Node, candidates)
			if box == nil {
				continue
			}
			k = key{kind: kindCheckboxContainer, scope: box}
			p.container[k] = box
		default:
			continue
		}
		p.keyOf[i] = k
		p.members[k] = append(p.members[k], c)
	}

	// A container only groups when it holds more than one checkbox.
	for i, k := range p.keyOf {
		if k.kind == kindCheckboxContainer && len(p.members[k]) < 2 {
			delete(p.keyOf, i)
		}
	}
	return p
}

func formOf(n *html.Node) *html.Node {
	return dom.Closest(n, func(p *html.Node) bool { return p.DataAtom == atom.Form })
}

// checkboxContainer returns the nearest ancestor that groups the checkbox
// n: a fieldset or role=group element, or an element whose scanned fields
// are all checkboxes and number at least two. The walk stops at the form.
func checkboxContainer(n *html.Node, candidates []model.FieldCandidate) *html.Node {
	p := n.Parent
	for depth := 0; depth < containerDepth && p != nil; depth, p = depth+1, p.Parent {
		if p.Type != html.ElementNode || dom.IsElement(p, atom.Form, atom.Body, atom.Html) {
			return nil
		}
		if p.DataAtom == atom.Fieldset || isGroupRole(p) {
			return p
		}
		boxes, others := 0, 0
		for _, c := range candidates {
			if c.Node == nil || !dom.Contains(p, c.Node) {
				continue
			}
			if c.Type == "checkbox" {
				boxes++
			} else {
				others++
			}
		}
		if others > 0 {
			return nil
		}
		if boxes >= 2 {
			return p
		}
	}
	return nil
}

func isGroupRole(n *html.Node) bool {
	role := strings.ToLower(strings.TrimSpace(dom.Attr(n, "role")))
	return role == "group" || role == "radiogroup"
}

// build labels one standalone field or one group. container is nil unless
// the group was found through its container.
func (a *Aggregator) build(members []model.FieldCandidate, container *html.Node) (f model.ClassifiedField, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build field: %v", r)
		}
	}()

	first := members[0]
	if len(members) == 1 && !isGroupMember(first, container) {
		f = model.ClassifiedField{
			FieldCandidate: first,
			Label:          a.resolver.Resolve(first),
		}
		if len(first.Choices) > 0 {
			f.Options = append([]model.Option(nil), first.Choices...)
		}
		return f, nil
	}
	return a.buildGroup(members, container), nil
}

// isGroupMember reports whether a single candidate still forms a group,
// which only happens for an array-named checkbox or a named radio.
func isGroupMember(c model.FieldCandidate, container *html.Node) bool {
	if container != nil {
		return true
	}
	switch c.Type {
	case "radio":
		return c.Name != ""
	case "checkbox":
		return strings.HasSuffix(c.Name, "[]")
	}
	return false
}

func (a *Aggregator) buildGroup(members []model.FieldCandidate, container *html.Node) model.ClassifiedField {
	first := members[0]
	g := model.ClassifiedField{
		FieldCandidate: model.FieldCandidate{
			Node:         first.Node,
			Tag:          first.Tag,
			Type:         first.Type,
			Name:         first.Name,
			ID:           first.ID,
			Autocomplete: first.Autocomplete,
			Position:     first.Position,
		},
		IsGroup: true,
		Options: make([]model.Option, 0, len(members)),
		Members: make([]*html.Node, 0, len(members)),
	}
	if container != nil {
		if id := dom.Attr(container, "id"); id != "" {
			g.ID = id
		}
	}

	var checked []string
	for _, m := range members {
		g.Box = g.Box.Union(m.Box)
		g.Required = g.Required || m.Required
		g.Members = append(g.Members, m.Node)

		value := m.Value
		if value == "" {
			value = "on"
		}
		opt := model.Option{
			Value:   value,
			Label:   a.resolver.ResolveOption(m).Text,
			Checked: dom.HasAttr(m.Node, "checked"),
		}
		if opt.Checked {
			checked = append(checked, value)
		}
		g.Options = append(g.Options, opt)
	}
	g.Value = strings.Join(checked, ",")
	g.Label = a.groupLabel(g.Members, container, first.Name)
	return g
}

// groupLabel labels a group from, in order of precedence, the enclosing
// fieldset's legend, the text preceding the members' common ancestor, the
// aria-labelledby target of the first member or the container, and the
// humanized group name.
func (a *Aggregator) groupLabel(members []*html.Node, container *html.Node, name string) model.LabelCandidate {
	lca := commonAncestor(members)

	if text := legendOf(lca, members); label.Valid(text) {
		return model.LabelCandidate{Text: text, Source: model.LabelSourceLegend, Score: ScoreLegend}
	}
	if text := a.precedingText(lca, members); label.Valid(text) {
		return model.LabelCandidate{Text: text, Source: model.LabelSourceHeading, Score: ScorePreceding}
	}
	for _, n := range []*html.Node{members[0], container, lca} {
		if n == nil {
			continue
		}
		if text := a.resolver.LabelledByText(n); label.Valid(text) {
			return model.LabelCandidate{Text: text, Source: model.LabelSourceAriaLabelledBy, Score: ScoreAriaLabelledBy}
		}
	}
	if container != nil {
		if text := label.Clean(dom.Attr(container, "aria-label")); label.Valid(text) {
			return model.LabelCandidate{Text: text, Source: model.LabelSourceAriaLabel, Score: ScoreAriaLabelledBy}
		}
	}
	if text := label.Humanize(strings.TrimSuffix(name, "[]")); label.Valid(text) {
		return model.LabelCandidate{Text: text, Source: model.LabelSourceName, Score: ScoreName}
	}
	return label.Unknown()
}

// commonAncestor returns the deepest element containing every node.
func commonAncestor(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	lca := nodes[0].Parent
	for _, n := range nodes[1:] {
		for lca != nil && !dom.Contains(lca, n) {
			lca = lca.Parent
		}
	}
	return lca
}

// legendOf returns the legend of the fieldset that is or encloses n, as
// long as that fieldset holds no control besides the members.
func legendOf(n *html.Node, members []*html.Node) string {
	fs := n
	if fs != nil && fs.DataAtom != atom.Fieldset {
		fs = dom.Closest(fs, func(p *html.Node) bool { return p.DataAtom == atom.Fieldset })
	}
	if fs == nil || hasForeignControl(fs, members) {
		return ""
	}
	for c := fs.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Legend {
			return label.ElementText(c)
		}
	}
	return ""
}

// precedingText returns the text that introduces the group: the last
// control-free text inside lca before the first member, or else the
// nearest control-free previous sibling of lca or one of its ancestors.
// Labels that point at a member are option labels and are ignored.
func (a *Aggregator) precedingText(lca *html.Node, members []*html.Node) string {
	if lca == nil {
		return ""
	}
	ids := make(map[string]struct{}, len(members))
	for _, m := range members {
		if id := dom.Attr(m, "id"); id != "" {
			ids[id] = struct{}{}
		}
	}

	var last string
	for c := lca.FirstChild; c != nil; c = c.NextSibling {
		if dom.Contains(c, members[0]) {
			break
		}
		if t := a.introText(c, ids); t != "" {
			last = t
		}
	}
	if last != "" {
		return last
	}

	n := lca
	for depth := 0; depth < precedingDepth && n != nil; depth, n = depth+1, n.Parent {
		if dom.IsElement(n, atom.Form, atom.Body, atom.Html) {
			break
		}
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.TextNode && strings.TrimSpace(s.Data) == "" {
				continue
			}
			if s.Type == html.ElementNode && containsControl(s) {
				return ""
			}
			if t := a.introText(s, ids); t != "" {
				return t
			}
		}
	}
	return ""
}

// introText returns the cleaned text of n when n is visible and can
// introduce a group.
func (a *Aggregator) introText(n *html.Node, memberIDs map[string]struct{}) string {
	if !a.doc.Visible(n) {
		return ""
	}
	switch n.Type {
	case html.TextNode:
		return label.Clean(n.Data)
	case html.ElementNode:
		if containsControl(n) || dom.IsElement(n, atom.Script, atom.Style, atom.Template, atom.Noscript) {
			return ""
		}
		if n.DataAtom == atom.Label {
			if _, ok := memberIDs[dom.Attr(n, "for")]; ok {
				return ""
			}
		}
		return label.ElementText(n)
	}
	return ""
}

// hasForeignControl reports whether the subtree at n holds a data entry
// control that is not one of members.
func hasForeignControl(n *html.Node, members []*html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c, atom.Input, atom.Select, atom.Textarea) && !slices.Contains(members, c) {
			switch strings.ToLower(dom.Attr(c, "type")) {
			case "hidden", "submit", "button", "reset", "image":
			default:
				return true
			}
		}
		if hasForeignControl(c, members) {
			return true
		}
	}
	return false
}

func containsControl(n *html.Node) bool {
	if dom.IsControl(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsControl(c) {
			return true
		}
	}
	return false
}
