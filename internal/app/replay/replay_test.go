package replay

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"LinguaLens/internal/config"
	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/lens"
	"LinguaLens/internal/settings"
	"LinguaLens/internal/transport/bridge"
)

const page = `<html><head></head><body><p>Hello there</p><p>Second line</p></body></html>`

func newController(t *testing.T) *lens.Controller {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	c := lens.New(doc, lens.Options{Settings: settings.Defaults(), HoverDelay: 5 * time.Millisecond})
	if !c.Mount(context.Background()) {
		t.Fatal("mount failed")
	}
	t.Cleanup(c.Unmount)
	return c
}

func TestRunTranslateThenUndo(t *testing.T) {
	c := newController(t)
	script := strings.Join([]string{
		`# hover the first paragraph and translate it`,
		`{"op":"over","path":"0/1/0"}`,
		`{"op":"settle"}`,
		`{"op":"key","key":"t","alt":true}`,
		`{"op":"settle"}`,
		``,
		`{"op":"over","path":"0/1/1"}`,
		`{"op":"settle"}`,
		`{"op":"key","key":"t","alt":true}`,
		`{"op":"settle"}`,
		`{"op":"key","key":"u","alt":true}`,
	}, "\n")

	if err := New(c, nil).Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	var out string
	c.Do(func(d *dom.Document) { out = d.String() })
	if !strings.Contains(out, "<p>[es] Hello there</p>") || !strings.Contains(out, "<p>Second line</p>") {
		t.Fatalf("result = %s", out)
	}
}

func TestRunPageEdits(t *testing.T) {
	c := newController(t)
	script := strings.Join([]string{
		`{"op":"insert","path":"0/1","index":0,"html":"<div class=\"hover-translate-tooltip\">tip</div>"}`,
		`{"op":"text","path":"0/1/2","text":"Edited line"}`,
		// После вставки первый абзац — 0/1/1.
		`{"op":"over","path":"0/1/1"}`,
		`{"op":"settle"}`,
		`{"op":"key","key":"t","alt":true}`,
		`{"op":"settle"}`,
	}, "\n")
	if err := New(c, nil).Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	var out string
	c.Do(func(d *dom.Document) { out = d.String() })
	if !strings.Contains(out, "<p>[es] Hello there</p><p>Edited line</p>") {
		t.Fatalf("result = %s", out)
	}
	err := New(c, nil).Run(context.Background(), strings.NewReader(`{"op":"insert","path":"0/1","index":42,"html":"x"}`))
	if !errors.Is(err, dom.ErrNodeNotFound) {
		t.Fatalf("out-of-range insert: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	c := newController(t)
	tests := []string{
		`{"op":"jump"}`,
		`not json`,
		`{"op":"over","path":"0/9/9"}`,
		`{"op":"over","path":"a/b"}`,
	}
	for _, script := range tests {
		err := New(c, nil).Run(context.Background(), strings.NewReader(script))
		if err == nil || !strings.Contains(err.Error(), "line 1") {
			t.Fatalf("%s: err = %v", script, err)
		}
	}
}

func TestRunCancelledWait(t *testing.T) {
	c := newController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(c, nil).Run(ctx, strings.NewReader(`{"op":"wait","ms":1000}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoteRunOverBridge(t *testing.T) {
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	srv := bridge.NewServer(config.BridgeConfig{}, bridge.Options{Store: store, HoverDelay: 5 * time.Millisecond}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cl := bridge.NewClient("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "")
	if err := cl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer cl.Close()

	r := NewRemote(cl, nil)
	r.Quiet = 100 * time.Millisecond
	enabled, err := r.Attach(ctx, page, "file:///page.html")
	if err != nil || !enabled {
		t.Fatalf("attach: %v %v", enabled, err)
	}
	script := strings.Join([]string{
		`{"op":"over","path":"0/1/0"}`,
		`{"op":"settle"}`,
		`{"op":"key","key":"t","alt":true}`,
		`{"op":"settle"}`,
	}, "\n")
	if err := r.Run(ctx, strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	muts := r.Mutations()
	if len(muts) != 1 || muts[0].Raw.Get("path").String() != "0/1/0" || muts[0].Raw.Get("text").String() != "[es] Hello there" {
		t.Fatalf("mutations = %+v", muts)
	}
}
