package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/lens"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Шаги сценария, по одному JSON-объекту на строку:
//
//	{"op":"over","path":"0/1/0"}
//	{"op":"out","path":"0/1/0","to":"0/1/2"}
//	{"op":"select","anchor":"0/1/0/0","focus":"0/1/0/0","text":"Hello"}
//	{"op":"key","key":"t","alt":true}
//	{"op":"remove","path":"0/1/0"}
//	{"op":"insert","path":"0/1","index":0,"html":"<div>note</div>"}
//	{"op":"text","path":"0/1/0","text":"Edited"}
//	{"op":"wait","ms":300}
//	{"op":"settle"}
//
// Пустые строки и строки, начинающиеся с #, пропускаются.
const (
	OpOver   = "over"
	OpOut    = "out"
	OpSelect = "select"
	OpKey    = "key"
	OpRemove = "remove"
	OpInsert = "insert"
	OpText   = "text"
	OpWait   = "wait"
	OpSettle = "settle"
)

// ErrNotMounted — контроллер размонтирован во время сценария.
var ErrNotMounted = lens.ErrNotMounted

// Runner проигрывает сценарий событий над смонтированным контроллером.
type Runner struct {
	ctrl   *lens.Controller
	logger *zap.SugaredLogger
	poll   time.Duration
}

func New(ctrl *lens.Controller, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{ctrl: ctrl, logger: logger, poll: 5 * time.Millisecond}
}

// Run читает сценарий построчно и выполняет шаги по порядку.
func (r *Runner) Run(ctx context.Context, script io.Reader) error {
	return run(script, func(raw string) error { return r.step(ctx, raw) })
}

func run(script io.Reader, step func(raw string) error) error {
	sc := bufio.NewScanner(script)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !gjson.Valid(raw) {
			return fmt.Errorf("replay: line %d: invalid json: %s", line, raw)
		}
		if err := step(raw); err != nil {
			return fmt.Errorf("replay: line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("replay: read script: %w", err)
	}
	return nil
}

func (r *Runner) step(ctx context.Context, raw string) error {
	st := gjson.Parse(raw)
	op := st.Get("op").String()
	r.logger.Debugw("Replay step", "op", op)

	switch op {
	case OpOver:
		n, err := r.node(st.Get("path").String())
		if err != nil {
			return err
		}
		r.ctrl.PointerOver(n)
	case OpOut:
		from, err := r.node(st.Get("path").String())
		if err != nil {
			return err
		}
		var to *html.Node
		if p := st.Get("to"); p.Exists() && p.String() != "" {
			if to, err = r.node(p.String()); err != nil {
				return err
			}
		}
		r.ctrl.PointerOut(from, to)
	case OpSelect:
		anchor, err := r.node(st.Get("anchor").String())
		if err != nil {
			return err
		}
		focus := anchor
		if p := st.Get("focus"); p.Exists() {
			if focus, err = r.node(p.String()); err != nil {
				return err
			}
		}
		r.ctrl.SelectionEnd(dom.Selection{Anchor: anchor, Focus: focus, Text: st.Get("text").String()})
	case OpKey:
		ev := lens.KeyEvent{
			Key:   st.Get("key").String(),
			Alt:   st.Get("alt").Bool(),
			Ctrl:  st.Get("ctrl").Bool(),
			Meta:  st.Get("meta").Bool(),
			Shift: st.Get("shift").Bool(),
		}
		suppressed := r.ctrl.KeyDown(ev)
		r.logger.Infow("Key", "key", ev.Key, "suppressed", suppressed)
	case OpRemove:
		n, err := r.node(st.Get("path").String())
		if err != nil {
			return err
		}
		r.ctrl.NodeRemoved(n)
	case OpInsert:
		return r.edit(st.Get("path").String(), func(doc *dom.Document, n *html.Node) error {
			_, err := doc.Insert(n, int(st.Get("index").Int()), st.Get("html").String())
			return err
		})
	case OpText:
		return r.edit(st.Get("path").String(), func(doc *dom.Document, n *html.Node) error {
			return doc.ReplaceText(n, st.Get("text").String())
		})
	case OpWait:
		return sleep(ctx, time.Duration(st.Get("ms").Int())*time.Millisecond)
	case OpSettle:
		return r.Settle(ctx)
	default:
		return fmt.Errorf("unknown op %q", op)
	}
	return nil
}

// Settle ждёт, пока не останется запланированной оценки наведения и выполняющегося перевода.
func (r *Runner) Settle(ctx context.Context) error {
	for {
		s, ok := r.ctrl.Snapshot()
		if !ok {
			return ErrNotMounted
		}
		if s.Status != lens.StatusTranslating && !s.HoverScheduled {
			return nil
		}
		if err := sleep(ctx, r.poll); err != nil {
			return err
		}
	}
}

func (r *Runner) node(path string) (*html.Node, error) {
	p, err := dom.ParsePath(path)
	if err != nil {
		return nil, err
	}
	var n *html.Node
	var rerr error
	if !r.ctrl.Do(func(doc *dom.Document) { n, rerr = doc.Resolve(p) }) {
		return nil, ErrNotMounted
	}
	return n, rerr
}

// edit применяет правку страницы к документу контроллера.
func (r *Runner) edit(path string, fn func(doc *dom.Document, n *html.Node) error) error {
	p, err := dom.ParsePath(path)
	if err != nil {
		return err
	}
	return r.ctrl.Edit(func(doc *dom.Document) error {
		n, err := doc.Resolve(p)
		if err != nil {
			return err
		}
		return fn(doc, n)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
