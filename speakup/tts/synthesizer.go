package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Voice selects how a line is spoken: which engine, and that engine's
// language, voice and rate.
type Voice struct {
	Engine       string  `json:"engine"`
	Language     string  `json:"language"`
	Name         string  `json:"voice_name"`
	SpeakingRate float64 `json:"speaking_rate,omitempty"`
}

// Outcome reports one synthesis. A failed synthesis has Success false and a
// message in Error; it is never returned as a Go error.
type Outcome struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	AudioURL string `json:"url,omitempty"`
	Text     string `json:"text,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Engine   string `json:"engine,omitempty"`
	TimingMs int64  `json:"timing_ms,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SpeechSynthesizer is what the pipeline and the HTTP handlers depend on.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) Outcome
}

var _ SpeechSynthesizer = (*Synthesizer)(nil)

// Synthesizer stores every generated clip as <uuid>.mp3 in its directory and
// reports the clip's public URL.
type Synthesizer struct {
	engines   *EngineRegistry
	dir       string
	urlPrefix string
	timeout   time.Duration
}

func NewSynthesizer(engines *EngineRegistry, dir, urlPrefix string, timeout time.Duration) (*Synthesizer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &Synthesizer{
		engines:   engines,
		dir:       dir,
		urlPrefix: urlPrefix,
		timeout:   timeout,
	}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice Voice) Outcome {
	outcome := Outcome{Text: text, Voice: voice.Name, Engine: voice.Engine}

	filename, timing, err := s.synthesize(ctx, text, voice)
	if err != nil {
		slog.Warn("speech synthesis failed", slog.String("engine", voice.Engine), slog.String("voice", voice.Name), slog.Any("err", err))
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.Filename = filename
	outcome.AudioURL = path.Join(s.urlPrefix, filename)
	outcome.TimingMs = timing.Milliseconds()
	return outcome
}

func (s *Synthesizer) synthesize(ctx context.Context, text string, voice Voice) (filename string, timing time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("TTS synthesis panicked: %v", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return "", 0, errors.New("TTS synthesis failed: empty text")
	}
	engine, ok := s.engines.Get(voice.Engine)
	if !ok {
		return "", 0, fmt.Errorf("TTS synthesis failed: unknown engine %q", voice.Engine)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := engine.GenerateSpeech(ctx, SpeechRequest{
		Text:         text,
		LanguageCode: voice.Language,
		VoiceName:    voice.Name,
		SpeakingRate: voice.SpeakingRate,
	})
	timing = time.Since(start)
	if err != nil {
		return "", timing, err
	}
	if len(audio) == 0 {
		return "", timing, errors.New("TTS synthesis failed: no audio data returned")
	}

	filename = uuid.NewString() + ".mp3"
	if err := os.WriteFile(filepath.Join(s.dir, filename), audio, 0o644); err != nil {
		return "", timing, fmt.Errorf("failed to store audio: %w", err)
	}
	return filename, timing, nil
}
