package dialogue

import (
	"context"
)

// Line is one utterance. Source is the learner's language, Target the
// language being practised; the JSON names follow the page format.
type Line struct {
	Speaker  string `json:"speaker" mapstructure:"speaker"`
	Source   string `json:"chinese" mapstructure:"chinese"`
	Target   string `json:"english" mapstructure:"english"`
	Phonetic string `json:"phonetic,omitempty" mapstructure:"phonetic"`
	AudioURL string `json:"audio_url,omitempty" mapstructure:"-"`
}

type Keyword struct {
	Word     string `json:"word" mapstructure:"word"`
	Phonetic string `json:"phonetic" mapstructure:"phonetic"`
	Meaning  string `json:"chinese" mapstructure:"chinese"`
}

// Result is the outcome of a generation. Failures are reported through
// Success and Error rather than a Go error so callers can forward the
// provider message unchanged.
type Result struct {
	Success  bool      `json:"success"`
	Topic    string    `json:"topic,omitempty"`
	Dialogue []Line    `json:"dialogue,omitempty"`
	Keywords []Keyword `json:"keywords,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func Failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

type Translation struct {
	Standard     string   `json:"standard" mapstructure:"standard"`
	Colloquial   string   `json:"colloquial" mapstructure:"colloquial"`
	Alternatives []string `json:"alternatives" mapstructure:"alternatives"`
}

type TranslationResult struct {
	Success      bool         `json:"success"`
	Source       string       `json:"chinese,omitempty"`
	Translations *Translation `json:"translations,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Generator produces a two-speaker dialogue and its vocabulary for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string, exchanges int) Result
}

// Translator turns source-language text into natural target-language phrasing.
type Translator interface {
	Translate(ctx context.Context, text string) TranslationResult
}
