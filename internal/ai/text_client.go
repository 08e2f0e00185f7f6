package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// TextClient переводит текст через OpenAI Responses API.
type TextClient struct {
	client *openai.Client
	model  string
	logger *zap.SugaredLogger
}

var _ Translator = (*TextClient)(nil)

func NewTextClient(client *openai.Client, model string, logger *zap.SugaredLogger) *TextClient {
	if strings.TrimSpace(model) == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &TextClient{client: client, model: model, logger: logger}
}

func (c *TextClient) Translate(ctx context.Context, text, targetLanguage, customPrompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("%w: nil openai client", ErrTranslation)
	}
	p := RenderPrompt(text, targetLanguage, customPrompt)

	inputItems := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(
			responses.ResponseInputMessageContentListParam{
				{OfInputText: &responses.ResponseInputTextParam{Text: p.System}},
			},
			responses.EasyInputMessageRoleSystem,
		),
		responses.ResponseInputItemParamOfMessage(
			responses.ResponseInputMessageContentListParam{
				{OfInputText: &responses.ResponseInputTextParam{Text: p.User}},
			},
			responses.EasyInputMessageRoleUser,
		),
	}

	start := time.Now()
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: openai.ChatModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: inputItems},
	})
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка ответа OpenAI", "duration", dur.String(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", fmt.Errorf("%w: %w", ErrTranslation, errors.New("empty response"))
	}
	c.logger.Infow("Перевод получен", "duration", dur.String(), "language", targetLanguage, "chars", len([]rune(out)))
	return out, nil
}
