package browser

import (
	"errors"
	"testing"

	"github.com/nao1215/formscan/internal/dom"
)

const snapshotJSON = `{
	"html": "<!DOCTYPE html><html><head></head><body><form><input name=\"bn\"></form></body></html>",
	"url": "https://sos.example.gov/form",
	"boxes": [
		{"tag": "html", "x": 0, "y": 0, "width": 800, "height": 600, "display": "block", "visibility": "visible", "opacity": 1},
		{"tag": "head", "x": 0, "y": 0, "width": 0, "height": 0, "display": "none", "visibility": "visible", "opacity": 1},
		{"tag": "body", "x": 8, "y": 8, "width": 784, "height": 40, "display": "block", "visibility": "visible", "opacity": 1},
		{"tag": "form", "x": 8, "y": 8, "width": 784, "height": 40, "display": "block", "visibility": "visible", "opacity": 1},
		{"tag": "input", "x": 8, "y": 300, "width": 180, "height": 22, "display": "inline-block", "visibility": "visible", "opacity": 1}
	]
}`

func TestDecode(t *testing.T) {
	t.Parallel()

	s, err := Decode([]byte(snapshotJSON))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(s.Boxes) != 5 || s.URL != "https://sos.example.gov/form" {
		t.Errorf("unexpected snapshot %+v", s)
	}

	if _, err := Decode([]byte(`{"html": ""}`)); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("expected ErrEmptySnapshot, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestSnapshotDocument(t *testing.T) {
	t.Parallel()

	t.Run("rendered layout", func(t *testing.T) {
		t.Parallel()

		s, err := Decode([]byte(snapshotJSON))
		if err != nil {
			t.Fatal(err)
		}
		doc, rendered, err := s.Document()
		if err != nil {
			t.Fatalf("Document() error = %v", err)
		}
		if !rendered {
			t.Fatal("expected the captured layout to be used")
		}
		input := doc.Query().Find("input").Get(0)
		if got := doc.Box(input); got.Y != 300 || got.Width != 180 {
			t.Errorf("unexpected box %+v", got)
		}
		if _, ok := doc.Layout().(*dom.SnapshotLayout); !ok {
			t.Errorf("layout is %T", doc.Layout())
		}
	})

	t.Run("mismatch keeps static layout", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{HTML: "<html><body><input></body></html>", Boxes: []dom.ElementBox{{Tag: "html"}}}
		doc, rendered, err := s.Document()
		if err != nil {
			t.Fatalf("Document() error = %v", err)
		}
		if rendered {
			t.Error("expected the static layout")
		}
		if _, ok := doc.Layout().(*dom.StaticLayout); !ok {
			t.Errorf("layout is %T", doc.Layout())
		}
	})
}

func TestSnapshotPage(t *testing.T) {
	t.Parallel()

	s := &Snapshot{HTML: "<html></html>", URL: "https://sos.example.gov/"}
	p := s.Page("sos.example.gov")
	if p.Source != "sos.example.gov" || p.URL != s.URL || p.Hash == "" {
		t.Errorf("unexpected page %+v", p)
	}
}
