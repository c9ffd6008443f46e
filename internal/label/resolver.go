package label

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/model"
)

// Default bounds of the nearby text search.
const (
	DefaultNearbyDepth  = 3
	DefaultNearbyPixels = 200.0
)

// Scores assigned by the strategies.
const (
	ScoreLabelFor         = 100
	ScoreAriaLabel        = 95
	ScoreLabelForMultiple = 90
	ScoreLabelWrap        = 90
	ScoreAriaLabelShort   = 85
	ScoreAriaLabelledBy   = 85
	ScoreNearbyMax        = 80
	ScoreNearbyMin        = 50
	ScoreTableHead        = 70
	ScoreTableFirstRow    = 65
	ScoreLegend           = 65
	ScorePlaceholder      = 60
	ScorePlaceholderHint  = 55
	ScoreTitle            = 55
	ScoreName             = 30
)

// Options bound the nearby text search.
type Options struct {
	// NearbyDepth is how many ancestors are searched for text.
	NearbyDepth int

	// NearbyPixels is the largest distance between text and field.
	NearbyPixels float64
}

// DefaultOptions returns the default search bounds.
func DefaultOptions() Options {
	return Options{NearbyDepth: DefaultNearbyDepth, NearbyPixels: DefaultNearbyPixels}
}

// Resolver picks the best human-readable label for a field.
// It only reads the document and is safe for concurrent use.
type Resolver struct {
	doc  *dom.Document
	opts Options
}

// NewResolver creates a Resolver for doc. Non-positive bounds fall back
// to the defaults.
func NewResolver(doc *dom.Document, opts Options) *Resolver {
	if opts.NearbyDepth <= 0 {
		opts.NearbyDepth = DefaultNearbyDepth
	}
	if opts.NearbyPixels <= 0 {
		opts.NearbyPixels = DefaultNearbyPixels
	}
	return &Resolver{doc: doc, opts: opts}
}

type strategy func(r *Resolver, c model.FieldCandidate) (model.LabelCandidate, bool)

// fieldStrategies run in priority order. On equal scores the earlier
// strategy wins.
var fieldStrategies = []strategy{
	(*Resolver).ariaLabel,
	(*Resolver).labelFor,
	(*Resolver).labelWrap,
	(*Resolver).ariaLabelledBy,
	(*Resolver).nearbyText,
	(*Resolver).tableHeader,
	(*Resolver).legend,
	(*Resolver).placeholder,
	(*Resolver).title,
	(*Resolver).name,
}

// optionStrategies label one member of a radio or checkbox group. Group
// context such as the legend or column header describes the whole group,
// not the option, so it is left out.
var optionStrategies = []strategy{
	(*Resolver).ariaLabel,
	(*Resolver).labelFor,
	(*Resolver).labelWrap,
	(*Resolver).ariaLabelledBy,
	(*Resolver).nearbyText,
	(*Resolver).title,
	(*Resolver).value,
}

// Unknown is the label used when no strategy yields valid text.
func Unknown() model.LabelCandidate {
	return model.LabelCandidate{Text: model.UnknownLabel, Source: model.LabelSourceNone}
}

// Resolve returns the best label for c, or Unknown.
func (r *Resolver) Resolve(c model.FieldCandidate) model.LabelCandidate {
	return r.best(c, fieldStrategies)
}

// ResolveOption returns the best label for one group member.
func (r *Resolver) ResolveOption(c model.FieldCandidate) model.LabelCandidate {
	return r.best(c, optionStrategies)
}

// Candidates returns every valid label candidate for c in strategy order.
func (r *Resolver) Candidates(c model.FieldCandidate) []model.LabelCandidate {
	var out []model.LabelCandidate
	for _, s := range fieldStrategies {
		if lc, ok := r.run(s, c); ok {
			out = append(out, lc)
		}
	}
	return out
}

func (r *Resolver) best(c model.FieldCandidate, strategies []strategy) model.LabelCandidate {
	best := Unknown()
	found := false
	for _, s := range strategies {
		lc, ok := r.run(s, c)
		if !ok {
			continue
		}
		if !found || lc.Score > best.Score {
			best, found = lc, true
		}
	}
	return best
}

// run executes one strategy. A panicking strategy yields no candidate.
func (r *Resolver) run(s strategy, c model.FieldCandidate) (lc model.LabelCandidate, ok bool) {
	defer func() {
		if recover() != nil {
			lc, ok = model.LabelCandidate{}, false
		}
	}()
	if c.Node == nil {
		return lc, false
	}
	lc, ok = s(r, c)
	if ok {
		lc.Text = Clean(lc.Text)
		ok = ValidFor(lc.Text, c)
	}
	return lc, ok
}

// ElementText returns the cleaned text of n without the text of any
// form control inside it.
func ElementText(n *html.Node) string {
	return Clean(dom.TextExcluding(n, dom.IsControl))
}

func (r *Resolver) ariaLabel(c model.FieldCandidate) (model.LabelCandidate, bool) {
	text := Clean(dom.Attr(c.Node, "aria-label"))
	if text == "" {
		return model.LabelCandidate{}, false
	}
	score := ScoreAriaLabel
	if len([]rune(text)) < 4 {
		score = ScoreAriaLabelShort
	}
	return model.LabelCandidate{Text: text, Source: model.LabelSourceAriaLabel, Score: score}, true
}

func (r *Resolver) labelFor(c model.FieldCandidate) (model.LabelCandidate, bool) {
	labels := r.doc.LabelsFor(c.ID)
	var texts []string
	for _, l := range labels {
		if t := ElementText(l); ValidFor(t, c) && !slices.Contains(texts, t) {
			texts = append(texts, t)
		}
	}
	switch len(texts) {
	case 0:
		return model.LabelCandidate{}, false
	case 1:
		return model.LabelCandidate{Text: texts[0], Source: model.LabelSourceLabelFor, Score: ScoreLabelFor}, true
	}
	text := strings.Join(texts, " ")
	if !Valid(Clean(text)) {
		text = texts[0]
	}
	return model.LabelCandidate{Text: text, Source: model.LabelSourceLabelFor, Score: ScoreLabelForMultiple}, true
}

func (r *Resolver) labelWrap(c model.FieldCandidate) (model.LabelCandidate, bool) {
	l := dom.Closest(c.Node, func(n *html.Node) bool { return n.DataAtom == atom.Label })
	if l == nil {
		return model.LabelCandidate{}, false
	}
	if target := strings.TrimSpace(dom.Attr(l, "for")); target != "" && target != c.ID {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: ElementText(l), Source: model.LabelSourceLabelWrap, Score: ScoreLabelWrap}, true
}

func (r *Resolver) ariaLabelledBy(c model.FieldCandidate) (model.LabelCandidate, bool) {
	text := r.LabelledByText(c.Node)
	if text == "" {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: text, Source: model.LabelSourceAriaLabelledBy, Score: ScoreAriaLabelledBy}, true
}

// LabelledByText joins the text of the elements named by the
// aria-labelledby attribute of n.
func (r *Resolver) LabelledByText(n *html.Node) string {
	var parts []string
	for _, id := range strings.Fields(dom.Attr(n, "aria-labelledby")) {
		if target := r.doc.ElementByID(id); target != nil {
			if t := ElementText(target); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return Clean(strings.Join(parts, " "))
}

// nearbyText searches the text around the field within a bounded number
// of ancestors and a bounded pixel distance. The score decays linearly
// with distance and with each ancestor level climbed. Text following the
// field is preferred for checkboxes and radios, whose labels usually sit
// to their right, and penalized otherwise.
func (r *Resolver) nearbyText(c model.FieldCandidate) (model.LabelCandidate, bool) {
	fieldBox := r.doc.Box(c.Node)
	if fieldBox.Empty() {
		return model.LabelCandidate{}, false
	}
	preferFollowing := c.Type == "checkbox" || c.Type == "radio"

	var (
		best     model.LabelCandidate
		bestRaw  = -1.0
		seen     = make(map[*html.Node]struct{})
		ancestor = c.Node
	)
	for depth := 1; depth <= r.opts.NearbyDepth; depth++ {
		ancestor = ancestor.Parent
		if ancestor == nil || ancestor.Type != html.ElementNode || dom.IsElement(ancestor, atom.Body, atom.Html) {
			break
		}

		passed := false
		r.eachText(ancestor, c.Node, &passed, func(holder *html.Node, following bool) {
			if _, ok := seen[holder]; ok {
				return
			}
			seen[holder] = struct{}{}

			text := r.holderText(holder)
			if !Valid(text) || !r.doc.Visible(holder) {
				return
			}
			dist := r.doc.Box(holder).Distance(fieldBox)
			if dist > r.opts.NearbyPixels {
				return
			}

			score := ScoreNearbyMax - (ScoreNearbyMax-ScoreNearbyMin)*dist/r.opts.NearbyPixels - 5*float64(depth-1)
			if following != preferFollowing {
				score -= 10
			}
			score = math.Max(ScoreNearbyMin, math.Min(ScoreNearbyMax, score))
			if score > bestRaw {
				bestRaw = score
				best = model.LabelCandidate{Text: text, Source: model.LabelSourceNearbyText, Score: int(math.Round(score))}
			}
		})
	}
	return best, bestRaw >= 0
}

// eachText visits, in document order, the text holders under root. A
// holder is the outermost element below root that wraps the text node
// and no control, otherwise the text node itself. Controls, the field, headings,
// legends and labels that belong to other controls are skipped. passed
// turns true once the walk has reached the field.
func (r *Resolver) eachText(root, field *html.Node, passed *bool, visit func(holder *html.Node, following bool)) {
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			holder := n
			for p := n.Parent; p != nil && p != root && !hasControl(p); p = p.Parent {
				holder = p
			}
			visit(holder, *passed)
		case html.ElementNode:
			if n == field {
				*passed = true
				continue
			}
			if skipForNearby(n, field) {
				if dom.Contains(n, field) {
					*passed = true
				}
				continue
			}
			r.eachText(n, field, passed, visit)
		}
	}
}

func (r *Resolver) holderText(holder *html.Node) string {
	if holder.Type == html.TextNode {
		return Clean(holder.Data)
	}
	return ElementText(holder)
}

// skipForNearby reports whether the subtree at n cannot hold the field's
// label.
func skipForNearby(n, field *html.Node) bool {
	if dom.IsControl(n) {
		return true
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Legend:
		return true
	case atom.Label:
		target := strings.TrimSpace(dom.Attr(n, "for"))
		return target != "" && target != dom.Attr(field, "id")
	}
	return false
}

// hasControl reports whether the subtree at n contains a form control.
func hasControl(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsControl(c) || (c.Type == html.ElementNode && hasControl(c)) {
			return true
		}
	}
	return false
}

// tableHeader returns the header of the column the field sits in: the
// thead cell when present, else the first row's cell.
func (r *Resolver) tableHeader(c model.FieldCandidate) (model.LabelCandidate, bool) {
	cell := dom.Closest(c.Node, func(n *html.Node) bool { return dom.IsElement(n, atom.Td, atom.Th) })
	if cell == nil || cell.Parent == nil {
		return model.LabelCandidate{}, false
	}
	row := cell.Parent
	table := dom.Closest(row, func(n *html.Node) bool { return n.DataAtom == atom.Table })
	if table == nil {
		return model.LabelCandidate{}, false
	}
	col := columnIndex(cell)

	head, first := tableRows(table)
	if head != nil && head != row {
		if h := cellAt(head, col); h != nil && !hasControl(h) {
			return model.LabelCandidate{Text: ElementText(h), Source: model.LabelSourceTableHeader, Score: ScoreTableHead}, true
		}
	}
	if first != nil && first != row {
		if h := cellAt(first, col); h != nil && !hasControl(h) {
			return model.LabelCandidate{Text: ElementText(h), Source: model.LabelSourceTableHeader, Score: ScoreTableFirstRow}, true
		}
	}
	return model.LabelCandidate{}, false
}

// tableRows returns the last row of the table's thead, if any, and the
// first row of the table body, ignoring nested tables.
func tableRows(table *html.Node) (head, first *html.Node) {
	for sec := table.FirstChild; sec != nil; sec = sec.NextSibling {
		switch sec.DataAtom {
		case atom.Thead:
			for tr := sec.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.DataAtom == atom.Tr {
					head = tr
				}
			}
		case atom.Tbody, atom.Tfoot:
			for tr := sec.FirstChild; tr != nil && first == nil; tr = tr.NextSibling {
				if tr.DataAtom == atom.Tr {
					first = tr
				}
			}
		case atom.Tr:
			if first == nil {
				first = sec
			}
		}
	}
	return head, first
}

func columnIndex(cell *html.Node) int {
	col := 0
	for s := cell.PrevSibling; s != nil; s = s.PrevSibling {
		if dom.IsElement(s, atom.Td, atom.Th) {
			col += colspan(s)
		}
	}
	return col
}

func cellAt(row *html.Node, col int) *html.Node {
	idx := 0
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if !dom.IsElement(c, atom.Td, atom.Th) {
			continue
		}
		span := colspan(c)
		if col >= idx && col < idx+span {
			return c
		}
		idx += span
	}
	return nil
}

func colspan(n *html.Node) int {
	if v, err := strconv.Atoi(strings.TrimSpace(dom.Attr(n, "colspan"))); err == nil && v > 1 {
		return v
	}
	return 1
}

func (r *Resolver) legend(c model.FieldCandidate) (model.LabelCandidate, bool) {
	text := FieldsetLegend(c.Node)
	if text == "" {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: text, Source: model.LabelSourceLegend, Score: ScoreLegend}, true
}

// FieldsetLegend returns the cleaned legend of the nearest fieldset that
// contains n, or "".
func FieldsetLegend(n *html.Node) string {
	fs := dom.Closest(n, func(p *html.Node) bool { return p.DataAtom == atom.Fieldset })
	if fs == nil {
		return ""
	}
	for c := fs.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Legend {
			return ElementText(c)
		}
	}
	return ""
}

// exampleHint matches placeholders that show a sample value rather than
// naming the field.
var exampleHint = regexp.MustCompile(`(?i)^(e\.?g\.?|ex\.?|example|sample)\b|^[\dx#*()\s./-]{4,}$|@`)

func (r *Resolver) placeholder(c model.FieldCandidate) (model.LabelCandidate, bool) {
	if c.Placeholder == "" {
		return model.LabelCandidate{}, false
	}
	score := ScorePlaceholder
	if exampleHint.MatchString(c.Placeholder) {
		score = ScorePlaceholderHint
	}
	return model.LabelCandidate{Text: c.Placeholder, Source: model.LabelSourcePlaceholder, Score: score}, true
}

func (r *Resolver) title(c model.FieldCandidate) (model.LabelCandidate, bool) {
	t := dom.Attr(c.Node, "title")
	if strings.TrimSpace(t) == "" {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: t, Source: model.LabelSourceTitle, Score: ScoreTitle}, true
}

func (r *Resolver) name(c model.FieldCandidate) (model.LabelCandidate, bool) {
	text := Humanize(c.Name)
	if !Valid(text) {
		text = Humanize(c.ID)
	}
	if text == "" {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: text, Source: model.LabelSourceName, Score: ScoreName}, true
}

// value labels a group member by its value, e.g. "sole_proprietor".
func (r *Resolver) value(c model.FieldCandidate) (model.LabelCandidate, bool) {
	if c.Value == "" || strings.EqualFold(c.Value, "on") {
		return model.LabelCandidate{}, false
	}
	return model.LabelCandidate{Text: Humanize(c.Value), Source: model.LabelSourceName, Score: ScoreName}, true
}
