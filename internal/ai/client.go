package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTranslation — общий признак неудачи бэкенда перевода (сеть, API, пустой ответ).
var ErrTranslation = errors.New("translation failed")

// Translator интерфейс бэкенда перевода. Все реализации должны быть взаимозаменяемыми.
// customPrompt может быть пустым. Ошибки оборачивают ErrTranslation.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage, customPrompt string) (string, error)
}

// TranslatorFunc позволяет использовать обычную функцию как Translator.
type TranslatorFunc func(ctx context.Context, text, targetLanguage, customPrompt string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, targetLanguage, customPrompt string) (string, error) {
	return f(ctx, text, targetLanguage, customPrompt)
}

// WithTimeout ограничивает каждый вызов tr таймаутом d. d <= 0 — без ограничения.
func WithTimeout(tr Translator, d time.Duration) Translator {
	if d <= 0 {
		return tr
	}
	return TranslatorFunc(func(ctx context.Context, text, targetLanguage, customPrompt string) (string, error) {
		ctx, cancel := context.WithTimeoutCause(ctx, d, fmt.Errorf("%w: timeout after %s", ErrTranslation, d))
		defer cancel()
		return tr.Translate(ctx, text, targetLanguage, customPrompt)
	})
}
