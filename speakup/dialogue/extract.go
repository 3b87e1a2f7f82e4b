package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

var (
	ErrNoJSON        = errors.New("no JSON object found in model reply")
	ErrEmptyDialogue = errors.New("model reply contains no dialogue lines")
)

// extractJSON returns the span between the first '{' and the last '}' so that
// prose or markdown fences around the payload are ignored.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// decodeReply parses a model reply into v. Models are loose with types
// (numbers for speakers, null for missing fields), so decoding is weakly typed.
func decodeReply(reply string, v any) error {
	raw, err := extractJSON(reply)
	if err != nil {
		return err
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return fmt.Errorf("failed to parse model reply as JSON: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(generic); err != nil {
		return fmt.Errorf("unexpected structure in model reply: %w", err)
	}
	return nil
}

type payload struct {
	Dialogue []Line    `mapstructure:"dialogue"`
	Keywords []Keyword `mapstructure:"keywords"`
}

func parseDialogue(reply string) ([]Line, []Keyword, error) {
	var p payload
	if err := decodeReply(reply, &p); err != nil {
		return nil, nil, err
	}

	lines := lo.Map(p.Dialogue, func(l Line, _ int) Line {
		l.Speaker = normalizeSpeaker(l.Speaker)
		l.Source = strings.TrimSpace(l.Source)
		l.Target = strings.TrimSpace(l.Target)
		return l
	})
	lines = lo.Filter(lines, func(l Line, _ int) bool {
		return l.Target != "" || l.Source != ""
	})
	if len(lines) == 0 {
		return nil, nil, ErrEmptyDialogue
	}

	keywords := lo.Filter(p.Keywords, func(k Keyword, _ int) bool {
		return strings.TrimSpace(k.Word) != ""
	})
	return lines, keywords, nil
}

func normalizeSpeaker(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "A"
	}
	return s
}
