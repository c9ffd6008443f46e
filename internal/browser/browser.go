// Package browser renders a page in headless Chrome and captures the
// element geometry the engine uses for visibility and distance checks.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/model"
)

// DefaultTimeout bounds navigation and capture of one page.
const DefaultTimeout = 30 * time.Second

// ErrEmptySnapshot is returned when the browser produced no markup.
var ErrEmptySnapshot = errors.New("browser returned an empty snapshot")

// captureScript serializes the DOM and reports every element's box and
// computed style in document order.
const captureScript = `() => {
	const boxes = [];
	for (const el of document.querySelectorAll('*')) {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		boxes.push({
			tag: el.tagName.toLowerCase(),
			x: r.left + window.scrollX,
			y: r.top + window.scrollY,
			width: r.width,
			height: r.height,
			display: s.display,
			visibility: s.visibility,
			opacity: parseFloat(s.opacity),
		});
	}
	const doctype = document.doctype ? '<!DOCTYPE html>' : '';
	return {html: doctype + document.documentElement.outerHTML, url: location.href, boxes: boxes};
}`

// Options configure the browser.
type Options struct {
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL string

	// Bin is the browser binary. Empty lets the launcher find or download
	// one.
	Bin string

	// Timeout bounds navigation and capture. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Snapshot is a rendered page.
type Snapshot struct {
	HTML  string           `json:"html"`
	URL   string           `json:"url"`
	Boxes []dom.ElementBox `json:"boxes"`
}

// Capture loads pageURL in a headless browser and returns its rendered
// markup and element boxes.
func Capture(ctx context.Context, pageURL string, opts Options) (*Snapshot, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(true)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		defer l.Kill()
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	defer func() { _ = b.Close() }()

	page, err := b.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pageURL, err)
	}
	page = page.Timeout(opts.Timeout)
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", pageURL, err)
	}

	res, err := page.Evaluate(&rod.EvalOptions{JS: captureScript, ByValue: true})
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", pageURL, err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return Decode(raw)
}

// Decode reads a snapshot from the JSON the capture script returns.
func Decode(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.HTML == "" {
		return nil, ErrEmptySnapshot
	}
	return &s, nil
}

// Document parses the snapshot markup and attaches the captured layout.
// When the boxes do not line up with the parsed elements the document
// keeps its static layout and rendered is false.
func (s *Snapshot) Document() (doc *dom.Document, rendered bool, err error) {
	doc, err = dom.ParseString(s.HTML)
	if err != nil {
		return nil, false, err
	}
	layout, err := dom.NewSnapshotLayout(doc, s.Boxes)
	if err != nil {
		return doc, false, nil
	}
	doc.SetLayout(layout)
	return doc, true, nil
}

// Page describes the snapshot as an acquired page.
func (s *Snapshot) Page(source string) *model.Page {
	p := &model.Page{
		Source:    source,
		URL:       s.URL,
		Raw:       []byte(s.HTML),
		FetchedAt: time.Now(),
	}
	p.TruncateRaw()
	p.ComputeHash()
	return p
}
