package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
)

const (
	googleSampleRate = 48000
	minGoogleRate    = 0.25
	maxGoogleRate    = 4.0
)

// GoogleSpeechClient is the part of the Cloud Text-to-Speech client the
// engine uses. *texttospeech.Client satisfies it.
type GoogleSpeechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

var _ Engine = (*GoogleEngine)(nil)

// GoogleEngine synthesizes MP3 through Google Cloud Text-to-Speech.
type GoogleEngine struct {
	client GoogleSpeechClient
}

func NewGoogleTTSEngine(client GoogleSpeechClient) *GoogleEngine {
	return &GoogleEngine{
		client: client,
	}
}

func (g *GoogleEngine) Name() string {
	return "google"
}

func (g *GoogleEngine) GenerateSpeech(ctx context.Context, request SpeechRequest) ([]byte, error) {
	language := request.LanguageCode
	if language == "" {
		language = languageFromVoice(request.VoiceName)
	}
	if language == "" {
		return nil, errors.New("speech request failed: google voices need a language code or a full voice name")
	}

	slog.Debug("Synthesize speech", slog.String("engine", g.Name()), slog.String("voice", request.VoiceName), slog.String("text", request.Text))
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: request.Text,
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         request.VoiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_MP3,
			SampleRateHertz: googleSampleRate,
			SpeakingRate:    googleRate(request.SpeakingRate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}

	return resp.GetAudioContent(), nil
}

// languageFromVoice takes the locale out of a Google voice name,
// e.g. en-US-Neural2-F -> en-US.
func languageFromVoice(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// googleRate maps an unset rate to normal speed and clamps the rest to the
// range the API accepts.
func googleRate(rate float64) float64 {
	if rate == 0 {
		return 1.0
	}
	return min(max(rate, minGoogleRate), maxGoogleRate)
}
