package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

var _ Engine = (*OpenAIEngine)(nil)

// OpenAIEngine synthesizes through the OpenAI audio/speech endpoint of any
// compatible provider. The voice name is passed through untouched so that
// provider specific voices (e.g. CosyVoice timbres) work.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

func NewOpenAIEngine(client *openai.Client, model string) *OpenAIEngine {
	return &OpenAIEngine{
		client: client,
		model:  model,
	}
}

func (e *OpenAIEngine) Name() string {
	return "openai"
}

func (e *OpenAIEngine) GenerateSpeech(ctx context.Context, request SpeechRequest) ([]byte, error) {
	slog.Debug("Synthesize speech", slog.String("engine", e.Name()), slog.String("voice", request.VoiceName), slog.String("text", request.Text))

	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(e.model),
		Input:          request.Text,
		Voice:          openai.SpeechVoice(request.VoiceName),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          request.SpeakingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}
	return audio, nil
}
