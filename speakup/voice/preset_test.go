package voice

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/makeitchaccha/speakup/speakup/tts"
)

func TestValidate(t *testing.T) {
	testcases := []struct {
		name    string
		preset  Preset
		wantErr bool
	}{
		{
			name:    "valid preset",
			preset:  Preset{Identifier: "female", Engine: "openai"},
			wantErr: false,
		},
		{
			name:    "empty identifier",
			preset:  Preset{Identifier: "", Engine: "openai"},
			wantErr: true,
		},
		{
			name:    "empty engine",
			preset:  Preset{Identifier: "female", Engine: ""},
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.preset.validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("preset.validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	registry := NewRegistry()
	female := Preset{Identifier: "female", Engine: "openai", VoiceName: "loongava_v2"}
	male := Preset{Identifier: "male", Engine: "openai", VoiceName: "loongandy_v2"}

	if err := registry.Register(female); err != nil {
		t.Fatalf("Register(female) error = %v", err)
	}
	if err := registry.Register(male); err != nil {
		t.Fatalf("Register(male) error = %v", err)
	}
	if err := registry.Register(female); err == nil {
		t.Error("Register() accepted a duplicate identifier")
	}
	if err := registry.Register(Preset{Engine: "openai"}); err == nil {
		t.Error("Register() accepted an invalid preset")
	}

	if diff := cmp.Diff([]Preset{female, male}, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	got, ok := registry.Get("male")
	if !ok || got != male {
		t.Errorf("Get(male) = %v, %v", got, ok)
	}
}

func TestPresetVoice(t *testing.T) {
	preset := Preset{Identifier: "female", Engine: "google", Language: "en-US", VoiceName: "en-US-Wavenet-C", SpeakingRate: 0.9}
	want := tts.Voice{Engine: "google", Language: "en-US", Name: "en-US-Wavenet-C", SpeakingRate: 0.9}

	if diff := cmp.Diff(want, preset.Voice()); diff != "" {
		t.Errorf("Voice() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeSpeaker(t *testing.T) {
	testcases := map[string]string{
		"a":   "A",
		" B ": "B",
		"":    "A",
		"c":   "C",
	}
	for in, want := range testcases {
		if got := NormalizeSpeaker(in); got != want {
			t.Errorf("NormalizeSpeaker(%q) = %q, want %q", in, got, want)
		}
	}
}
