package lens

import (
	"testing"

	"LinguaLens/internal/settings"
)

func TestDispatcherMatch(t *testing.T) {
	def := settings.Defaults()

	tests := []struct {
		name  string
		tweak func(*settings.Settings)
		ev    KeyEvent
		want  Action
	}{
		{"alt+t", nil, KeyEvent{Key: "t", Alt: true}, ActionTranslate},
		{"alt+T upper", nil, KeyEvent{Key: "T", Alt: true, Shift: true}, ActionTranslate},
		{"alt+u", nil, KeyEvent{Key: "u", Alt: true}, ActionUndo},
		{"no modifier", nil, KeyEvent{Key: "t"}, ActionNone},
		{"wrong modifier", nil, KeyEvent{Key: "t", Ctrl: true}, ActionNone},
		{"other key", nil, KeyEvent{Key: "x", Alt: true}, ActionNone},
		{"named key", nil, KeyEvent{Key: "Tab", Alt: true}, ActionNone},
		{"empty key", nil, KeyEvent{Alt: true}, ActionNone},
		{
			"meta binding",
			func(s *settings.Settings) { s.Modifier = settings.ModifierMeta; s.UndoKey = "z" },
			KeyEvent{Key: "z", Meta: true},
			ActionUndo,
		},
		{
			"shift binding",
			func(s *settings.Settings) { s.Modifier = settings.ModifierShift },
			KeyEvent{Key: "T", Shift: true},
			ActionTranslate,
		},
		{
			"identical bindings prefer translate",
			func(s *settings.Settings) { s.UndoKey = "t" },
			KeyEvent{Key: "t", Alt: true},
			ActionTranslate,
		},
		{
			"non-latin key",
			func(s *settings.Settings) { s.TranslateKey = "П" },
			KeyEvent{Key: "п", Alt: true},
			ActionTranslate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := def
			if tt.tweak != nil {
				tt.tweak(&st)
			}
			if got := NewDispatcher(st).Match(tt.ev); got != tt.want {
				t.Fatalf("Match(%+v) = %s, want %s", tt.ev, got, tt.want)
			}
		})
	}
}
