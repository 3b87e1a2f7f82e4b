package tts

import (
	"context"
	"fmt"
	"sync"
)

// Engine is a generic interface for text-to-speech engines.
// Each implementation maps SpeechRequest onto its own provider parameters.
type Engine interface {
	// Name returns the name of the TTS engine, e.g. "openai", "google".
	Name() string

	// GenerateSpeech generates speech from the given text and returns the mp3 audio data.
	GenerateSpeech(ctx context.Context, request SpeechRequest) (audioContent []byte, err error)
}

type SpeechRequest struct {
	Text         string
	LanguageCode string
	VoiceName    string
	SpeakingRate float64
}

// EngineRegistry holds engines by the identifier presets refer to.
type EngineRegistry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		engines: make(map[string]Engine),
	}
}

func (r *EngineRegistry) Register(identifier string, engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[identifier]; ok {
		return fmt.Errorf("engine already registered: %s", identifier)
	}
	r.engines[identifier] = engine
	return nil
}

func (r *EngineRegistry) Get(identifier string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[identifier]
	return engine, ok
}
