package settings

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalid — настройки не проходят базовую валидацию.
	ErrInvalid = errors.New("settings: invalid")
	// ErrAmbiguousBindings — клавиши перевода и отмены совпадают (undo становится недостижим).
	ErrAmbiguousBindings = errors.New("settings: translate and undo bindings are identical")
)

// Modifier — клавиша-модификатор, которую нужно удерживать вместе с символом хоткея.
type Modifier string

const (
	ModifierAlt   Modifier = "alt"
	ModifierCtrl  Modifier = "ctrl"
	ModifierMeta  Modifier = "meta"
	ModifierShift Modifier = "shift"
)

// ParseModifier разбирает модификатор без учёта регистра.
func ParseModifier(s string) (Modifier, error) {
	switch m := Modifier(strings.ToLower(strings.TrimSpace(s))); m {
	case ModifierAlt, ModifierCtrl, ModifierMeta, ModifierShift:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown modifier %q", ErrInvalid, s)
	}
}

// Settings — неизменяемый снимок настроек, передаётся ядру при монтировании.
type Settings struct {
	TargetLanguage string   // Код целевого языка, напр. "es"
	CustomPrompt   string   // Пользовательский шаблон промпта (может быть пустым)
	TranslateKey   string   // Один символ, сравнивается без учёта регистра
	UndoKey        string   // Один символ, сравнивается без учёта регистра
	Modifier       Modifier // alt|ctrl|meta|shift
	Enabled        bool     // Включён ли перевод по наведению/выделению
}

// Defaults возвращает настройки по умолчанию.
func Defaults() Settings {
	return Settings{
		TargetLanguage: "es",
		CustomPrompt:   "",
		TranslateKey:   "t",
		UndoKey:        "u",
		Modifier:       ModifierAlt,
		Enabled:        true,
	}
}

// Validate проверяет формат полей. Совпадение биндингов здесь не проверяется —
// см. ValidateBindings.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("%w: empty target language", ErrInvalid)
	}
	if utf8.RuneCountInString(s.TranslateKey) != 1 {
		return fmt.Errorf("%w: translate key must be a single character, got %q", ErrInvalid, s.TranslateKey)
	}
	if utf8.RuneCountInString(s.UndoKey) != 1 {
		return fmt.Errorf("%w: undo key must be a single character, got %q", ErrInvalid, s.UndoKey)
	}
	if _, err := ParseModifier(string(s.Modifier)); err != nil {
		return err
	}
	return nil
}

// ValidateBindings сообщает о совпадающих клавишах перевода и отмены.
// В рантайме такая конфигурация допустима (перевод имеет приоритет), но сохранять её нельзя.
func (s Settings) ValidateBindings() error {
	if strings.EqualFold(s.TranslateKey, s.UndoKey) {
		return fmt.Errorf("%w: %s+%s", ErrAmbiguousBindings, s.Modifier, strings.ToLower(s.TranslateKey))
	}
	return nil
}

// HotkeyLabel возвращает человекочитаемую подпись хоткея, напр. "Alt+T".
func (s Settings) HotkeyLabel(key string) string {
	mod := string(s.Modifier)
	if mod != "" {
		mod = strings.ToUpper(mod[:1]) + mod[1:]
	}
	return mod + "+" + strings.ToUpper(key)
}
