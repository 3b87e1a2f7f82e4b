package dialogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeitchaccha/speakup/speakup/openaiclient"
)

func newChatServer(t *testing.T, status int, content string) (*httptest.Server, *[]openai.ChatCompletionRequest) {
	t.Helper()
	var requests []openai.ChatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "quota exceeded", "type": "rate_limit"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{
				{
					Index:        0,
					Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
					FinishReason: openai.FinishReasonStop,
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestGenerator(srv *httptest.Server) *OpenAIGenerator {
	client := openaiclient.New(openaiclient.Config{APIKey: "test-key", BaseURL: srv.URL})
	return NewOpenAIGenerator(client, "test-model", 5*time.Second)
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	srv, requests := newChatServer(t, http.StatusOK, "Of course!\n"+`{
		"dialogue": [
			{"speaker": "A", "chinese": "我想点餐。", "english": "I'd like to order."},
			{"speaker": "B", "chinese": "好的。", "english": "Sure."}
		],
		"keywords": [{"word": "order", "phonetic": "/ˈɔːdə/", "chinese": "点餐"}]
	}`)

	result := newTestGenerator(srv).Generate(context.Background(), "restaurant ordering", 2)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "restaurant ordering", result.Topic)
	require.Len(t, result.Dialogue, 2)
	assert.Equal(t, "A", result.Dialogue[0].Speaker)
	assert.Equal(t, "Sure.", result.Dialogue[1].Target)
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "点餐", result.Keywords[0].Meaning)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, `"restaurant ordering"`)
	assert.Contains(t, req.Messages[1].Content, "2 exchanges")
}

func TestOpenAIGeneratorUnparsableReply(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusOK, "I am not able to produce JSON today.")

	result := newTestGenerator(srv).Generate(context.Background(), "airport", 3)

	assert.False(t, result.Success)
	assert.Equal(t, ErrNoJSON.Error(), result.Error)
	assert.Empty(t, result.Dialogue)
}

func TestOpenAIGeneratorProviderError(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusTooManyRequests, "")

	result := newTestGenerator(srv).Generate(context.Background(), "hotel", 3)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "API call failed")
	assert.Contains(t, result.Error, "quota exceeded")
}

func TestOpenAIGeneratorTranslate(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusOK, `{"standard": "Good morning.", "colloquial": "Morning!", "alternatives": ["Hi there"]}`)

	result := newTestGenerator(srv).Translate(context.Background(), "早上好")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "早上好", result.Source)
	assert.Equal(t, "Morning!", result.Translations.Colloquial)
	assert.Equal(t, []string{"Hi there"}, result.Translations.Alternatives)
}
