package lens

import (
	"strings"
	"unicode/utf8"

	"LinguaLens/internal/settings"
)

// KeyEvent — нажатие клавиши: символ и состояние модификаторов.
type KeyEvent struct {
	Key   string
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool
}

// Held сообщает, удерживается ли модификатор m.
func (e KeyEvent) Held(m settings.Modifier) bool {
	switch m {
	case settings.ModifierAlt:
		return e.Alt
	case settings.ModifierCtrl:
		return e.Ctrl
	case settings.ModifierMeta:
		return e.Meta
	case settings.ModifierShift:
		return e.Shift
	default:
		return false
	}
}

// Action — действие, на которое отображается хоткей.
type Action int

const (
	ActionNone Action = iota
	ActionTranslate
	ActionUndo
)

func (a Action) String() string {
	switch a {
	case ActionTranslate:
		return "translate"
	case ActionUndo:
		return "undo"
	default:
		return "none"
	}
}

// Dispatcher сопоставляет нажатия с настроенными биндингами.
type Dispatcher struct {
	modifier  settings.Modifier
	translate string
	undo      string
}

func NewDispatcher(st settings.Settings) Dispatcher {
	return Dispatcher{
		modifier:  st.Modifier,
		translate: strings.ToLower(st.TranslateKey),
		undo:      strings.ToLower(st.UndoKey),
	}
}

// Match возвращает действие для нажатия. Перевод проверяется первым:
// при одинаковых биндингах отмена недостижима.
func (d Dispatcher) Match(ev KeyEvent) Action {
	if !ev.Held(d.modifier) {
		return ActionNone
	}
	key := strings.ToLower(ev.Key)
	if utf8.RuneCountInString(key) != 1 {
		return ActionNone
	}
	switch key {
	case d.translate:
		return ActionTranslate
	case d.undo:
		return ActionUndo
	}
	return ActionNone
}
