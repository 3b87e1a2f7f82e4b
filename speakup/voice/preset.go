// Package voice decides which voice speaks each line of a dialogue.
package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/makeitchaccha/speakup/speakup/tts"
)

type PresetID string

type Preset struct {
	Identifier   PresetID `json:"identifier"`
	Engine       string   `json:"engine"`
	Language     string   `json:"language"`
	VoiceName    string   `json:"voice_name"`
	SpeakingRate float64  `json:"speaking_rate"`
}

func (p Preset) validate() error {
	if p.Identifier == "" {
		return errors.New("preset identifier cannot be empty")
	}
	if p.Engine == "" {
		return errors.New("preset engine cannot be empty")
	}
	return nil
}

// Voice converts the preset into synthesis parameters.
func (p Preset) Voice() tts.Voice {
	return tts.Voice{
		Engine:       p.Engine,
		Language:     p.Language,
		Name:         p.VoiceName,
		SpeakingRate: p.SpeakingRate,
	}
}

type Registry struct {
	presets map[PresetID]Preset // identifier -> Preset
	lists   []Preset
}

func NewRegistry() *Registry {
	return &Registry{
		presets: make(map[PresetID]Preset),
	}
}

func (r *Registry) Register(preset Preset) error {
	if err := preset.validate(); err != nil {
		return fmt.Errorf("invalid preset: %w", err)
	}
	if _, ok := r.presets[preset.Identifier]; ok {
		return fmt.Errorf("preset already registered: %s", preset.Identifier)
	}
	r.presets[preset.Identifier] = preset
	r.lists = append(r.lists, preset)

	return nil
}

func (r *Registry) Get(identifier PresetID) (Preset, bool) {
	preset, ok := r.presets[identifier]
	return preset, ok
}

// List returns the presets in registration order.
func (r *Registry) List() []Preset {
	return append([]Preset(nil), r.lists...)
}

const (
	SpeakerA = "A"
	SpeakerB = "B"
)

// NormalizeSpeaker upper-cases a speaker tag. Empty tags belong to A.
func NormalizeSpeaker(speaker string) string {
	speaker = strings.ToUpper(strings.TrimSpace(speaker))
	if speaker == "" {
		return SpeakerA
	}
	return speaker
}

// IsSpeaker reports whether speaker is a tag that can carry an override.
func IsSpeaker(speaker string) bool {
	switch strings.ToUpper(strings.TrimSpace(speaker)) {
	case SpeakerA, SpeakerB:
		return true
	}
	return false
}
