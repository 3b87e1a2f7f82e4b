package tts

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGoogleClient struct {
	got   *texttospeechpb.SynthesizeSpeechRequest
	audio []byte
	err   error
}

func (s *stubGoogleClient) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: s.audio}, nil
}

func TestGoogleEngine(t *testing.T) {
	client := &stubGoogleClient{audio: []byte("ID3-fake-mp3")}
	engine := NewGoogleTTSEngine(client)

	audio, err := engine.GenerateSpeech(context.Background(), SpeechRequest{
		Text:         "Could I see the menu?",
		LanguageCode: "en-GB",
		VoiceName:    "en-GB-Neural2-A",
		SpeakingRate: 1.25,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("ID3-fake-mp3"), audio)
	assert.Equal(t, "google", engine.Name())
	require.NotNil(t, client.got)
	assert.Equal(t, "Could I see the menu?", client.got.GetInput().GetText())
	assert.Equal(t, "en-GB", client.got.GetVoice().GetLanguageCode())
	assert.Equal(t, "en-GB-Neural2-A", client.got.GetVoice().GetName())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, client.got.GetAudioConfig().GetAudioEncoding())
	assert.Equal(t, int32(googleSampleRate), client.got.GetAudioConfig().GetSampleRateHertz())
	assert.InDelta(t, 1.25, client.got.GetAudioConfig().GetSpeakingRate(), 1e-9)
}

func TestGoogleEngineRequestMapping(t *testing.T) {
	testcases := []struct {
		name         string
		request      SpeechRequest
		wantLanguage string
		wantRate     float64
	}{
		{
			name:         "language from voice name",
			request:      SpeechRequest{Text: "hi", VoiceName: "en-US-Neural2-F"},
			wantLanguage: "en-US",
			wantRate:     1.0,
		},
		{
			name:         "language only",
			request:      SpeechRequest{Text: "hi", LanguageCode: "en-AU", SpeakingRate: 0.9},
			wantLanguage: "en-AU",
			wantRate:     0.9,
		},
		{
			name:         "rate clamped high",
			request:      SpeechRequest{Text: "hi", LanguageCode: "en-US", SpeakingRate: 10},
			wantLanguage: "en-US",
			wantRate:     maxGoogleRate,
		},
		{
			name:         "rate clamped low",
			request:      SpeechRequest{Text: "hi", LanguageCode: "en-US", SpeakingRate: 0.1},
			wantLanguage: "en-US",
			wantRate:     minGoogleRate,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubGoogleClient{audio: []byte("mp3")}
			_, err := NewGoogleTTSEngine(client).GenerateSpeech(context.Background(), tc.request)
			require.NoError(t, err)

			assert.Equal(t, tc.wantLanguage, client.got.GetVoice().GetLanguageCode())
			assert.InDelta(t, tc.wantRate, client.got.GetAudioConfig().GetSpeakingRate(), 1e-9)
		})
	}
}

func TestGoogleEngineErrors(t *testing.T) {
	t.Run("no language", func(t *testing.T) {
		client := &stubGoogleClient{}
		_, err := NewGoogleTTSEngine(client).GenerateSpeech(context.Background(), SpeechRequest{Text: "hi", VoiceName: "loongava_v2"})
		require.Error(t, err)
		assert.Nil(t, client.got, "no request is sent without a language")
	})

	t.Run("provider error", func(t *testing.T) {
		client := &stubGoogleClient{err: errors.New("permission denied")}
		_, err := NewGoogleTTSEngine(client).GenerateSpeech(context.Background(), SpeechRequest{Text: "hi", LanguageCode: "en-US"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "speech request failed")
		assert.Contains(t, err.Error(), "permission denied")
	})
}

func TestLanguageFromVoice(t *testing.T) {
	assert.Equal(t, "en-US", languageFromVoice("en-US-Neural2-F"))
	assert.Equal(t, "cmn-CN", languageFromVoice("cmn-CN-Wavenet-A"))
	assert.Equal(t, "", languageFromVoice("loongava_v2"))
	assert.Equal(t, "", languageFromVoice("en-US"))
	assert.Equal(t, "", languageFromVoice(""))
}
