package lens

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"LinguaLens/internal/dom"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const (
	DefaultMinTextLength = 2
	DefaultMaxTextLength = 500

	// NoTranslateSelector — маркер «не переводить» на элементе или любом его предке.
	NoTranslateSelector = `[data-no-hover-translate="true"]`
	// OverlaySelector — собственная подсказка/оверлей переводчика.
	OverlaySelector = `.hover-translate-tooltip`
)

// Теги, которые несут содержимое и подходят для перевода.
var allowedTags = map[string]struct{}{
	"P": {}, "SPAN": {}, "DIV": {},
	"H1": {}, "H2": {}, "H3": {}, "H4": {}, "H5": {}, "H6": {},
	"TD": {}, "TH": {}, "LI": {}, "A": {},
	"BLOCKQUOTE": {}, "LABEL": {}, "DT": {}, "DD": {}, "BUTTON": {},
}

// Source — откуда пришёл кандидат.
type Source int

const (
	SourceHover Source = iota + 1
	SourceSelection
)

func (s Source) String() string {
	switch s {
	case SourceHover:
		return "hover"
	case SourceSelection:
		return "selection"
	default:
		return "unknown"
	}
}

// Candidate — предполагаемая цель перевода.
type Candidate struct {
	Element    *html.Node
	Text       string
	Source     Source
	CapturedAt time.Time
}

// Same сравнивает кандидатов по идентичности элемента и тексту.
func (c Candidate) Same(o Candidate) bool {
	return c.Element == o.Element && c.Text == o.Text
}

// Resolver применяет правила выбора цели к событиям наведения и выделения.
type Resolver struct {
	minLen  int
	maxLen  int
	blocked cascadia.Selector
	overlay cascadia.Selector
	now     func() time.Time
}

func NewResolver(minLen, maxLen int, now func() time.Time) *Resolver {
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		minLen:  minLen,
		maxLen:  maxLen,
		blocked: cascadia.MustCompile(NoTranslateSelector + ", " + OverlaySelector),
		overlay: cascadia.MustCompile(OverlaySelector),
		now:     now,
	}
}

// IsOverlay — узел принадлежит оверлею переводчика.
func (r *Resolver) IsOverlay(n *html.Node) bool {
	return n != nil && dom.Closest(n, r.overlay) != nil
}

// Hover разрешает цель события наведения.
func (r *Resolver) Hover(target *html.Node) (Candidate, error) {
	el := dom.ElementOf(target)
	if el == nil {
		return Candidate{}, reject("no element")
	}
	if !dom.Rooted(el) {
		return Candidate{}, reject("element detached from document")
	}
	if err := r.checkBlocked(el); err != nil {
		return Candidate{}, err
	}
	if !allowed(el) && !dom.HasSingleTextChild(el) {
		return Candidate{}, reject("tag %s is not content-bearing", dom.Tag(el))
	}
	return r.extract(el, SourceHover)
}

// Selection разрешает цель завершённого выделения: элемент якоря,
// а если его тег не подходит — общий предок диапазона.
func (r *Resolver) Selection(sel dom.Selection) (Candidate, error) {
	if sel.Collapsed() {
		return Candidate{}, reject("empty selection")
	}
	el := dom.ElementOf(sel.Anchor)
	if el == nil {
		return Candidate{}, reject("no anchor element")
	}
	if !dom.Rooted(el) {
		return Candidate{}, reject("anchor detached from document")
	}
	if err := r.checkBlocked(el); err != nil {
		return Candidate{}, err
	}
	if !allowed(el) {
		el = dom.ElementOf(sel.CommonAncestor())
		if el == nil || !allowed(el) {
			return Candidate{}, reject("selection container is not content-bearing")
		}
		if err := r.checkBlocked(el); err != nil {
			return Candidate{}, err
		}
	}
	return r.extract(el, SourceSelection)
}

func (r *Resolver) checkBlocked(el *html.Node) error {
	if dom.Closest(el, r.blocked) != nil {
		return reject("marked as do-not-translate or overlay")
	}
	return nil
}

// extract достаёт текст и применяет ограничение длины.
func (r *Resolver) extract(el *html.Node, src Source) (Candidate, error) {
	text := strings.TrimSpace(dom.TextContent(el))
	if text == "" {
		// Смотрим только непосредственных текстовых детей, глубже не идём.
		text = dom.FirstDirectText(el)
	}
	if err := r.checkLength(text); err != nil {
		return Candidate{}, err
	}
	return Candidate{Element: el, Text: text, Source: src, CapturedAt: r.now()}, nil
}

func (r *Resolver) checkLength(text string) error {
	n := utf8.RuneCountInString(text)
	if n < r.minLen || n > r.maxLen {
		return reject("text length %d outside [%d, %d]", n, r.minLen, r.maxLen)
	}
	if strings.IndexFunc(text, func(c rune) bool { return !unicode.IsSpace(c) }) < 0 {
		return reject("whitespace only")
	}
	return nil
}

func allowed(el *html.Node) bool {
	_, ok := allowedTags[dom.Tag(el)]
	return ok
}

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrEligibilityRejected}, args...)...)
}
