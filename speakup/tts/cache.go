package tts

import (
	"context"
	"encoding/hex"
	"hash"
	"hash/fnv"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/cache/v9"
)

var _ Engine = (*CachedEngine)(nil)

// CachedEngine is a wrapper around an Engine that caches the generated audio data.
// The key is a hash of the engine name, language code, voice name, speaking rate and text.
type CachedEngine struct {
	nextEngine Engine
	cache      *cache.Cache
	ttl        time.Duration
	newHash    func() hash.Hash
}

// NewCachedEngine wraps nextEngine. A nil newHash selects 64-bit FNV-1a.
func NewCachedEngine(nextEngine Engine, c *cache.Cache, ttl time.Duration, newHash func() hash.Hash) *CachedEngine {
	if newHash == nil {
		newHash = func() hash.Hash { return fnv.New64a() }
	}

	return &CachedEngine{
		nextEngine: nextEngine,
		cache:      c,
		ttl:        ttl,
		newHash:    newHash,
	}
}

func (c *CachedEngine) Name() string {
	return c.nextEngine.Name() + "-cached"
}

func (c *CachedEngine) GenerateSpeech(ctx context.Context, request SpeechRequest) ([]byte, error) {
	key := c.generateKey(request)

	var audioData []byte
	if err := c.cache.Get(ctx, key, &audioData); err == nil {
		slog.Debug("cache hit", "key", key, "engine", c.Name())
		return audioData, nil
	}

	audioData, err := c.nextEngine.GenerateSpeech(ctx, request)
	if err != nil {
		return nil, err
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := c.cache.Set(&cache.Item{
		Ctx:   setCtx,
		Key:   key,
		Value: audioData,
		TTL:   c.ttl,
	}); err != nil {
		// caching is best effort, the audio is still returned
		slog.Warn("failed to cache audio data", "error", err, "key", key)
	}

	return audioData, nil
}

func (c *CachedEngine) generateKey(request SpeechRequest) string {
	h := c.newHash()
	for _, part := range []string{c.nextEngine.Name(), request.LanguageCode, request.VoiceName, formatRate(request.SpeakingRate), request.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "tts:" + hex.EncodeToString(h.Sum(nil))
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
