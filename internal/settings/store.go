package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// ErrMalformed — сохранённые настройки не являются JSON-объектом.
var ErrMalformed = errors.New("settings: malformed persisted data")

// Ключи сохранённого JSON-объекта.
const (
	keyLanguage  = "defaultLanguage"
	keyPrompt    = "customPrompt"
	keyEnabled   = "enableHoverTranslate"
	keyTranslate = "translateHotkeyKey"
	keyUndo      = "undoHotkeyKey"
	keyModifier  = "hotkeyModifier"
)

// Store — хранилище настроек, которым пользуется хост.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileStore хранит настройки одним JSON-объектом в файле.
type FileStore struct {
	path   string
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string, logger *zap.SugaredLogger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load читает настройки. Отсутствующий файл — это дефолты без ошибки.
// Битый файл удаляется, возвращаются дефолты вместе с ErrMalformed:
// вызывающий трактует это как «использовать значения по умолчанию».
func (s *FileStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		if rmErr := os.Remove(s.path); rmErr != nil && s.logger != nil {
			s.logger.Warnw("Не удалось удалить битый файл настроек", "path", s.path, "error", rmErr)
		}
		return Defaults(), ErrMalformed
	}
	return Decode(raw), nil
}

// Decode собирает Settings из JSON. Отсутствующие поля и поля неверного типа
// получают значения по умолчанию.
func Decode(raw []byte) Settings {
	doc := gjson.ParseBytes(raw)
	out := Defaults()

	if v := doc.Get(keyLanguage); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
		out.TargetLanguage = strings.TrimSpace(v.Str)
	}
	if v := doc.Get(keyPrompt); v.Type == gjson.String {
		out.CustomPrompt = v.Str
	}
	if v := doc.Get(keyEnabled); v.IsBool() {
		out.Enabled = v.Bool()
	}
	if v := doc.Get(keyTranslate); v.Type == gjson.String && utf8.RuneCountInString(v.Str) == 1 {
		out.TranslateKey = v.Str
	}
	if v := doc.Get(keyUndo); v.Type == gjson.String && utf8.RuneCountInString(v.Str) == 1 {
		out.UndoKey = v.Str
	}
	if v := doc.Get(keyModifier); v.Type == gjson.String {
		if m, err := ParseModifier(v.Str); err == nil {
			out.Modifier = m
		}
	}
	return out
}

// Encode записывает поля настроек в JSON-документ base, сохраняя посторонние ключи.
func Encode(base string, st Settings) (string, error) {
	if !gjson.Valid(base) || !gjson.Parse(base).IsObject() {
		base = "{}"
	}
	fields := []struct {
		key   string
		value any
	}{
		{keyLanguage, st.TargetLanguage},
		{keyPrompt, st.CustomPrompt},
		{keyEnabled, st.Enabled},
		{keyTranslate, st.TranslateKey},
		{keyUndo, st.UndoKey},
		{keyModifier, string(st.Modifier)},
	}
	doc := base
	for _, f := range fields {
		var err error
		doc, err = sjson.Set(doc, f.key, f.value)
		if err != nil {
			return "", fmt.Errorf("settings: set %s: %w", f.key, err)
		}
	}
	return doc, nil
}

// Save валидирует и атомарно записывает настройки (временный файл + rename).
// Совпадающие биндинги отклоняются.
func (s *FileStore) Save(st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := st.ValidateBindings(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := "{}"
	if raw, err := os.ReadFile(s.path); err == nil {
		base = string(raw)
	}
	doc, err := Encode(base, st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("settings: rename: %w", err)
	}
	if s.logger != nil {
		s.logger.Infow("Settings saved", "path", s.path, "language", st.TargetLanguage)
	}
	return nil
}
