package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

var (
	_ Generator  = (*OpenAIGenerator)(nil)
	_ Translator = (*OpenAIGenerator)(nil)
)

// OpenAIGenerator talks to any provider exposing the OpenAI chat completions API.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGenerator(client *openai.Client, model string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, topic string, exchanges int) Result {
	start := time.Now()
	reply, err := g.complete(ctx, systemPrompt, dialoguePrompt(topic, exchanges))
	if err != nil {
		slog.Error("dialogue generation failed", slog.String("topic", topic), slog.Any("err", err))
		return Failure(err.Error())
	}

	lines, keywords, err := parseDialogue(reply)
	if err != nil {
		slog.Warn("unusable dialogue reply", slog.String("topic", topic), slog.Any("err", err), slog.Int("replyLen", len(reply)))
		return Failure(err.Error())
	}

	slog.Info("dialogue generated",
		slog.String("topic", topic),
		slog.Int("lines", len(lines)),
		slog.Int("keywords", len(keywords)),
		slog.Duration("duration", time.Since(start)),
	)
	return Result{
		Success:  true,
		Topic:    topic,
		Dialogue: lines,
		Keywords: keywords,
	}
}

func (g *OpenAIGenerator) Translate(ctx context.Context, text string) TranslationResult {
	reply, err := g.complete(ctx, translatorPrompt, translationPrompt(text))
	if err != nil {
		return TranslationResult{Error: err.Error()}
	}

	var t Translation
	if err := decodeReply(reply, &t); err != nil {
		return TranslationResult{Error: err.Error()}
	}
	return TranslationResult{
		Success:      true,
		Source:       text,
		Translations: &t,
	}
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("API call failed: no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("API call failed: empty reply")
	}
	return content, nil
}
