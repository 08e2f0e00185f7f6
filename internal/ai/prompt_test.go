package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderPrompt(t *testing.T) {
	tests := []struct {
		name       string
		custom     string
		wantUser   string
		wantSystem string
	}{
		{
			name:       "default",
			custom:     "",
			wantUser:   "Hello there",
			wantSystem: "to Spanish",
		},
		{
			name:       "placeholders",
			custom:     "Translate to {{targetLanguage}} formally: {{text}}",
			wantUser:   "Translate to Spanish formally: Hello there",
			wantSystem: "to Spanish",
		},
		{
			name:       "instruction only",
			custom:     "Use a pirate voice in {{targetLanguage}}.",
			wantUser:   "Hello there",
			wantSystem: "Use a pirate voice in Spanish.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RenderPrompt("Hello there", "es", tt.custom)
			if p.User != tt.wantUser {
				t.Fatalf("User = %q, want %q", p.User, tt.wantUser)
			}
			if !strings.Contains(p.System, tt.wantSystem) {
				t.Fatalf("System = %q, want it to contain %q", p.System, tt.wantSystem)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("DE"); got != "German" {
		t.Fatalf("got %q", got)
	}
	if got := LanguageName("tlh"); got != "tlh" {
		t.Fatalf("unknown code: got %q", got)
	}
}

func TestStubClient(t *testing.T) {
	got, err := NewStubClient().Translate(context.Background(), "Hello", "ES", "")
	if err != nil || got != "[es] Hello" {
		t.Fatalf("got %q, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStubClient().Translate(ctx, "Hello", "es", ""); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestWithTimeout(t *testing.T) {
	slow := TranslatorFunc(func(ctx context.Context, text, _, _ string) (string, error) {
		<-ctx.Done()
		return "", context.Cause(ctx)
	})
	_, err := WithTimeout(slow, 5*time.Millisecond).Translate(context.Background(), "Hello", "es", "")
	if !errors.Is(err, ErrTranslation) {
		t.Fatalf("err = %v, want ErrTranslation", err)
	}

	stub := NewStubClient()
	if WithTimeout(stub, 0) != Translator(stub) {
		t.Fatal("zero timeout must return the translator unchanged")
	}
}
