package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/makeitchaccha/speakup/speakup/dialogue"
	"github.com/makeitchaccha/speakup/speakup/page"
	"github.com/makeitchaccha/speakup/speakup/tts"
	"github.com/makeitchaccha/speakup/speakup/voice"
)

const (
	msgNotInitialized = "Services not initialized. Please set config first."
	defaultPageTopic  = "英语学习"
	rawVoiceEngine    = "openai"
)

func (s *Server) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"configured": s.currentServices() != nil,
	})
}

type configRequest struct {
	APIKey string `json:"api_key"`
}

// SetConfig swaps the service snapshot. Jobs already queued keep theirs.
func (s *Server) SetConfig(c echo.Context) error {
	var req configRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return fail(c, http.StatusBadRequest, "API key is required")
	}

	svc, err := s.factory(strings.TrimSpace(req.APIKey))
	if err != nil {
		slog.Error("failed to build services", slog.Any("err", err))
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	s.services.Store(svc)

	slog.Info("Services reconfigured")
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Configuration updated successfully",
	})
}

func (s *Server) GenerateDialogue(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	topic, exchanges, err := req.validate()
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	svc := s.currentServices()
	if svc == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}

	return c.JSON(http.StatusOK, svc.Generator.Generate(c.Request().Context(), topic, exchanges))
}

// GenerateFull generates and narrates a dialogue within the request,
// without storing a page.
func (s *Server) GenerateFull(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	topic, exchanges, err := req.validate()
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	svc := s.currentServices()
	if svc == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}

	ctx := c.Request().Context()
	result := svc.Generator.Generate(ctx, topic, exchanges)
	if !result.Success {
		return c.JSON(http.StatusOK, result)
	}
	lines, _, err := svc.Narrate(ctx, result.Dialogue, nil)
	if err != nil {
		return err
	}
	result.Dialogue = lines
	return c.JSON(http.StatusOK, result)
}

type translateRequest struct {
	Text string `json:"text"`
}

func (s *Server) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	svc := s.currentServices()
	if svc == nil || svc.Translator == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fail(c, http.StatusBadRequest, "Text is required")
	}

	return c.JSON(http.StatusOK, svc.Translator.Translate(c.Request().Context(), req.Text))
}

type ttsRequest struct {
	Text    string `json:"text"`
	Voice   string `json:"voice"`
	Speaker string `json:"speaker"`
}

// Synthesize speaks one text. voice names a preset or, failing that, a raw
// voice of the openai engine; without it the speaker's voice is used.
func (s *Server) Synthesize(c echo.Context) error {
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	svc := s.currentServices()
	if svc == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fail(c, http.StatusBadRequest, "Text is required")
	}

	ctx := c.Request().Context()
	var v tts.Voice
	if req.Voice != "" {
		if p, ok := s.presets.Get(voice.PresetID(strings.ToLower(req.Voice))); ok {
			v = p.Voice()
		} else {
			// a provider voice name such as loongava_v2
			v = tts.Voice{Engine: rawVoiceEngine, Name: req.Voice}
		}
	} else {
		p, err := svc.Voices.Resolve(ctx, req.Speaker)
		if err != nil {
			return err
		}
		v = p.Voice()
	}

	return c.JSON(http.StatusOK, svc.Synthesizer.Synthesize(ctx, req.Text, v))
}

type dialogueItem struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	English string `json:"english"`
}

type ttsDialogueRequest struct {
	Dialogue []dialogueItem `json:"dialogue"`
}

type lineOutcome struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	tts.Outcome
}

func (s *Server) SynthesizeDialogue(c echo.Context) error {
	var req ttsDialogueRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	svc := s.currentServices()
	if svc == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}
	if len(req.Dialogue) == 0 {
		return fail(c, http.StatusBadRequest, "Dialogue list is required")
	}

	lines := lo.Map(req.Dialogue, func(item dialogueItem, _ int) dialogue.Line {
		return dialogue.Line{
			Speaker: voice.NormalizeSpeaker(item.Speaker),
			Target:  lo.Ternary(item.Text != "", item.Text, item.English),
		}
	})
	_, outcomes, err := svc.Narrate(c.Request().Context(), lines, nil)
	if err != nil {
		return err
	}

	results := lo.Map(outcomes, func(o tts.Outcome, i int) lineOutcome {
		return lineOutcome{Index: i, Speaker: lines[i].Speaker, Outcome: o}
	})
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

type saveRequest struct {
	Topic    string             `json:"topic"`
	Dialogue []dialogue.Line    `json:"dialogue"`
	Keywords []dialogue.Keyword `json:"keywords"`
}

func (s *Server) SaveHTML(c echo.Context) error {
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	svc := s.currentServices()
	if svc == nil || svc.Pages == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = defaultPageTopic
	}
	saved, err := svc.Pages.Save(c.Request().Context(), page.Page{
		Topic:    topic,
		Dialogue: req.Dialogue,
		Keywords: req.Keywords,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"filename": saved.Filename,
		"url":      saved.URL,
	})
}
