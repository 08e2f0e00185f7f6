package ai

import (
	"context"
	"strings"
)

// StubClient заглушка, которая не делает реальных запросов: помечает текст кодом языка.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

func (c *StubClient) Translate(ctx context.Context, text, targetLanguage, _ string) (string, error) {
	if err := context.Cause(ctx); err != nil {
		return "", err
	}
	return "[" + strings.ToLower(targetLanguage) + "] " + text, nil
}
