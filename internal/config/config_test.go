package config

import (
	"flag"
	"io"
	"reflect"
	"testing"
	"time"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(newFlagSet(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HoverDelay != 250*time.Millisecond || cfg.MinTextLength != 2 || cfg.MaxTextLength != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Bridge.Path != "/ws" || cfg.Bridge.AllowedOrigins != nil {
		t.Fatalf("bridge defaults: %+v", cfg.Bridge)
	}
}

func TestParseEnvThenFlags(t *testing.T) {
	t.Setenv("HOVER_DELAY", "400ms")
	t.Setenv("MAX_TEXT_LENGTH", "120")
	t.Setenv("BRIDGE_ALLOWED_ORIGINS", "https://a.example;https://b.example")

	cfg, err := Parse(newFlagSet(), []string{"-max-text-length", "80", "-use-stub"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HoverDelay != 400*time.Millisecond {
		t.Fatalf("env not applied: %s", cfg.HoverDelay)
	}
	if cfg.MaxTextLength != 80 || !cfg.UseStub {
		t.Fatalf("flags must override env: %+v", cfg)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Bridge.AllowedOrigins, want) {
		t.Fatalf("origins = %v", cfg.Bridge.AllowedOrigins)
	}
}

func TestParseRejectsInconsistentLengths(t *testing.T) {
	if _, err := Parse(newFlagSet(), []string{"-min-text-length", "10", "-max-text-length", "5"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Parse(newFlagSet(), []string{"-bridge-path", "ws"}); err == nil {
		t.Fatal("expected error for relative path")
	}
}

func TestParseListFlag(t *testing.T) {
	if got := parseListFlag(" a ; ;b ", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
	if got := parseListFlag(" ; ", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("got %v", got)
	}
}
