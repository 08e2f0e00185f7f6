package lens

import (
	"errors"
	"strings"
	"testing"
	"time"

	"LinguaLens/internal/dom"
)

func mustDoc(t *testing.T, page string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestResolverLengthGate(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"one char", "a", false},
		{"two chars", "ab", true},
		{"max", strings.Repeat("x", 500), true},
		{"over max", strings.Repeat("x", 501), false},
		{"whitespace only", "   \t ", false},
		{"multibyte counted as runes", strings.Repeat("ж", 500), true},
		{"trimmed", "   a   ", false},
		// Длина в кодовых точках: эмодзи вне BMP считается одним символом.
		{"astral counted as one rune", "😀", false},
		{"astral max", strings.Repeat("😀", 500), true},
		{"astral over max", strings.Repeat("😀", 501), false},
	}
	r := NewResolver(0, 0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, `<p id="p">`+tt.text+`</p>`)
			_, err := r.Hover(doc.Query("#p"))
			if tt.ok && err != nil {
				t.Fatalf("unexpected rejection: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrEligibilityRejected) {
				t.Fatalf("err = %v, want ErrEligibilityRejected", err)
			}
		})
	}
}

func TestResolverHoverTags(t *testing.T) {
	page := `<html><body>` +
		`<h2 id="h">Heading text</h2>` +
		`<em id="em">emphasised</em>` +
		`<section id="sec"><p>child one</p><p>child two</p></section>` +
		`<div id="wrap"><span></span></div>` +
		`<div><code id="code">x := 1</code></div>` +
		`<a id="a">Link label</a>` +
		`</body></html>`
	doc := mustDoc(t, page)
	r := NewResolver(0, 0, nil)

	tests := []struct {
		sel  string
		ok   bool
		text string
	}{
		{"#h", true, "Heading text"},
		{"#em", true, "emphasised"}, // не из списка, но единственный текстовый ребёнок
		{"#sec", false, ""},
		{"#wrap", false, ""},
		{"#code", true, "x := 1"},
		{"#a", true, "Link label"},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			c, err := r.Hover(doc.Query(tt.sel))
			if tt.ok != (err == nil) {
				t.Fatalf("ok = %v, err = %v", tt.ok, err)
			}
			if tt.ok && c.Text != tt.text {
				t.Fatalf("text = %q, want %q", c.Text, tt.text)
			}
		})
	}
}

func TestResolverHoverTextNodeUsesParent(t *testing.T) {
	doc := mustDoc(t, `<li id="li">Item label</li>`)
	li := doc.Query("#li")
	c, err := NewResolver(0, 0, nil).Hover(li.FirstChild)
	if err != nil {
		t.Fatal(err)
	}
	if c.Element != li || c.Source != SourceHover {
		t.Fatalf("candidate = %+v", c)
	}
}

func TestResolverBlockedAndOverlay(t *testing.T) {
	page := `<div data-no-hover-translate="true"><div><p id="deep">Nested deep</p></div></div>` +
		`<p id="self" data-no-hover-translate="true">Self marked</p>` +
		`<p id="falsy" data-no-hover-translate="false">Not marked</p>` +
		`<div class="hover-translate-tooltip"><p id="tip">Overlay text</p></div>`
	doc := mustDoc(t, page)
	r := NewResolver(0, 0, nil)

	for _, sel := range []string{"#deep", "#self", "#tip"} {
		if _, err := r.Hover(doc.Query(sel)); !errors.Is(err, ErrEligibilityRejected) {
			t.Fatalf("%s: err = %v", sel, err)
		}
	}
	if _, err := r.Hover(doc.Query("#falsy")); err != nil {
		t.Fatalf("falsy marker rejected: %v", err)
	}
	if !r.IsOverlay(doc.Query("#tip").FirstChild) || r.IsOverlay(doc.Query("#falsy")) {
		t.Fatal("IsOverlay mismatch")
	}
}

func TestResolverSelection(t *testing.T) {
	page := `<div id="box"><p id="a">First <i id="i">part</i></p><p id="b">Second part</p></div>` +
		`<section id="sec"><em id="e1">one</em> and <em id="e2">two</em></section>`
	doc := mustDoc(t, page)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewResolver(0, 0, func() time.Time { return at })

	a, b, i := doc.Query("#a"), doc.Query("#b"), doc.Query("#i")

	c, err := r.Selection(dom.Selection{Anchor: a.FirstChild, Focus: b.FirstChild, Text: "First part Second"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Element != a || c.Source != SourceSelection || !c.CapturedAt.Equal(at) {
		t.Fatalf("anchor element expected, got %+v", c)
	}

	// Тег якоря <i> не подходит: берём общий предок.
	c, err = r.Selection(dom.Selection{Anchor: i.FirstChild, Focus: b.FirstChild, Text: "part Second"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Element != doc.Query("#box") || c.Text != "First partSecond part" {
		t.Fatalf("fallback candidate = %+v", c)
	}

	// Общий предок <section> тоже не подходит.
	e1, e2 := doc.Query("#e1"), doc.Query("#e2")
	if _, err := r.Selection(dom.Selection{Anchor: e1.FirstChild, Focus: e2.FirstChild, Text: "one and two"}); err == nil {
		t.Fatal("section container must be rejected")
	}

	if _, err := r.Selection(dom.Selection{Anchor: a, Focus: a, Text: " "}); err == nil {
		t.Fatal("collapsed selection must be rejected")
	}
}

func TestCandidateSame(t *testing.T) {
	doc := mustDoc(t, `<p id="p">Hello</p><p id="q">Hello</p>`)
	p, q := doc.Query("#p"), doc.Query("#q")
	a := Candidate{Element: p, Text: "Hello", Source: SourceHover}
	if !a.Same(Candidate{Element: p, Text: "Hello", Source: SourceSelection, CapturedAt: time.Now()}) {
		t.Fatal("same element and text must be Same")
	}
	if a.Same(Candidate{Element: q, Text: "Hello"}) || a.Same(Candidate{Element: p, Text: "Hi"}) {
		t.Fatal("different element or text must differ")
	}
}

func TestResolverRejectsDetached(t *testing.T) {
	doc := mustDoc(t, `<p id="p">Good <b id="b">morning</b></p>`)
	b := doc.Query("#b")
	p := doc.Query("#p")
	r := NewResolver(0, 0, nil)

	dom.SetText(p, "Buenos días")
	if _, err := r.Hover(b); !errors.Is(err, ErrEligibilityRejected) {
		t.Fatalf("hover on detached node: err = %v", err)
	}
	if _, err := r.Selection(dom.Selection{Anchor: b.FirstChild, Focus: b.FirstChild, Text: "morning"}); !errors.Is(err, ErrEligibilityRejected) {
		t.Fatalf("selection in detached node: err = %v", err)
	}
	if _, err := r.Hover(p); err != nil {
		t.Fatalf("attached parent must still resolve: %v", err)
	}
}
