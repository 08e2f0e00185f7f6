package lens

import (
	"context"
	"sync"
	"testing"
	"time"

	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/notify"
	"LinguaLens/internal/settings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// fakeScheduler срабатывает только по команде теста.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// FireAll запускает все активные таймеры и возвращает их количество.
func (s *fakeScheduler) FireAll() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *fakeScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type translateCall struct {
	text, lang, prompt string
	reply              chan translateResult
}

type translateResult struct {
	out string
	err error
}

// fakeTranslator отдаёт каждый вызов тесту и ждёт ответа.
type fakeTranslator struct {
	calls chan translateCall
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{calls: make(chan translateCall, 8)}
}

func (f *fakeTranslator) Translate(ctx context.Context, text, lang, prompt string) (string, error) {
	call := translateCall{text: text, lang: lang, prompt: prompt, reply: make(chan translateResult, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.out, r.err
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}

func (f *fakeTranslator) next(t *testing.T) translateCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("translator was not called")
		return translateCall{}
	}
}

func (f *fakeTranslator) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected translate call for %q", c.text)
	case <-time.After(30 * time.Millisecond):
	}
}

type recorder struct {
	mu        sync.Mutex
	notes     []notify.Notification
	mutations []Mutation
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) mutate(m Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, m)
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recorder) mutationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mutations)
}

type fixture struct {
	c     *Controller
	doc   *dom.Document
	sched *fakeScheduler
	tr    *fakeTranslator
	rec   *recorder
}

func newFixture(t *testing.T, page string, tweak func(*settings.Settings)) *fixture {
	t.Helper()
	return newLoggedFixture(t, page, tweak, zap.NewNop().Sugar())
}

func newLoggedFixture(t *testing.T, page string, tweak func(*settings.Settings), logger *zap.SugaredLogger) *fixture {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	st := settings.Defaults()
	if tweak != nil {
		tweak(&st)
	}
	f := &fixture{doc: doc, sched: &fakeScheduler{}, tr: newFakeTranslator(), rec: &recorder{}}
	f.c = New(doc, Options{
		Settings:   st,
		Translator: f.tr,
		Notifier:   f.rec,
		Logger:     logger,
		Scheduler:  f.sched,
		OnMutation: f.rec.mutate,
	})
	if st.Enabled && !f.c.Mount(context.Background()) {
		t.Fatal("Mount returned false")
	}
	t.Cleanup(f.c.Unmount)
	return f
}

func (f *fixture) node(t *testing.T, selector string) *html.Node {
	t.Helper()
	var n *html.Node
	if !f.c.Do(func(doc *dom.Document) { n = doc.Query(selector) }) {
		n = f.doc.Query(selector)
	}
	if n == nil {
		t.Fatalf("no node for %s", selector)
	}
	return n
}

func (f *fixture) text(t *testing.T, n *html.Node) string {
	t.Helper()
	var s string
	if !f.c.Do(func(*dom.Document) { s = dom.TextContent(n) }) {
		t.Fatal("controller not mounted")
	}
	return s
}

// hover наводит курсор и дожидается истечения debounce.
func (f *fixture) hover(t *testing.T, n *html.Node) {
	t.Helper()
	if !f.c.PointerOver(n) {
		t.Fatal("PointerOver dropped")
	}
	f.sync(t)
	f.sched.FireAll()
	f.sync(t)
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	if !f.c.Do(func(*dom.Document) {}) {
		t.Fatal("controller not mounted")
	}
}

func (f *fixture) snapshot(t *testing.T) Snapshot {
	t.Helper()
	s, ok := f.c.Snapshot()
	if !ok {
		t.Fatal("controller not mounted")
	}
	return s
}

func (f *fixture) waitStatus(t *testing.T, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := f.snapshot(t)
		if s.Status == want {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = %s, want %s", s.Status, want)
		}
		time.Sleep(time.Millisecond)
	}
}

var (
	altT = KeyEvent{Key: "t", Alt: true}
	altU = KeyEvent{Key: "u", Alt: true}
)
