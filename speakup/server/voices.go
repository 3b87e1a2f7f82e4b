package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/makeitchaccha/speakup/speakup/voice"
)

type voiceResponse struct {
	Speaker    string       `json:"speaker"`
	Preset     voice.Preset `json:"preset"`
	Overridden bool         `json:"overridden"`
}

// ListVoices reports every preset and the voice each speaker currently uses.
func (s *Server) ListVoices(c echo.Context) error {
	ctx := c.Request().Context()
	overrides, err := s.overrides.List(ctx)
	if err != nil {
		return err
	}

	speakers := make([]voiceResponse, 0, 2)
	for _, speaker := range []string{voice.SpeakerA, voice.SpeakerB} {
		preset, err := s.voices.Resolve(ctx, speaker)
		if err != nil {
			return err
		}
		_, overridden := overrides[speaker]
		speakers = append(speakers, voiceResponse{Speaker: speaker, Preset: preset, Overridden: overridden})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"presets":  s.presets.List(),
		"speakers": speakers,
	})
}

func speakerParam(c echo.Context) (string, bool) {
	speaker := c.Param("speaker")
	if !voice.IsSpeaker(speaker) {
		return "", false
	}
	return voice.NormalizeSpeaker(speaker), true
}

func (s *Server) GetVoice(c echo.Context) error {
	speaker, ok := speakerParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "speaker must be A or B")
	}

	ctx := c.Request().Context()
	preset, err := s.voices.Resolve(ctx, speaker)
	if err != nil {
		return err
	}
	_, err = s.overrides.Find(ctx, speaker)
	overridden := err == nil

	return c.JSON(http.StatusOK, voiceResponse{Speaker: speaker, Preset: preset, Overridden: overridden})
}

type setVoiceRequest struct {
	Preset string `json:"preset"`
}

func (s *Server) SetVoice(c echo.Context) error {
	speaker, ok := speakerParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "speaker must be A or B")
	}
	var req setVoiceRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	id := voice.PresetID(strings.ToLower(strings.TrimSpace(req.Preset)))
	preset, ok := s.presets.Get(id)
	if !ok {
		return fail(c, http.StatusBadRequest, "unknown voice preset "+req.Preset)
	}
	if err := s.overrides.Save(c.Request().Context(), speaker, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, voiceResponse{Speaker: speaker, Preset: preset, Overridden: true})
}

func (s *Server) DeleteVoice(c echo.Context) error {
	speaker, ok := speakerParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "speaker must be A or B")
	}

	if err := s.overrides.Delete(c.Request().Context(), speaker); err != nil {
		if errors.Is(err, voice.ErrNotFound) {
			return fail(c, http.StatusNotFound, "no override for speaker "+speaker)
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
