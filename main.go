package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/go-redis/cache/v9"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/makeitchaccha/speakup/migrations"
	"github.com/makeitchaccha/speakup/speakup"
	"github.com/makeitchaccha/speakup/speakup/dialogue"
	"github.com/makeitchaccha/speakup/speakup/history"
	"github.com/makeitchaccha/speakup/speakup/i18n"
	"github.com/makeitchaccha/speakup/speakup/openaiclient"
	"github.com/makeitchaccha/speakup/speakup/page"
	"github.com/makeitchaccha/speakup/speakup/pipeline"
	"github.com/makeitchaccha/speakup/speakup/server"
	"github.com/makeitchaccha/speakup/speakup/task"
	"github.com/makeitchaccha/speakup/speakup/tts"
	"github.com/makeitchaccha/speakup/speakup/voice"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	generatedURLPrefix = "/generated"
	audioURLPrefix     = "/audio"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load env file", slog.String("file", *envFile), slog.Any("err", err))
	}

	cfg, err := speakup.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to read config", slog.Any("err", err))
		os.Exit(-1)
	}

	setupLogger(cfg.Log)
	slog.Info("Starting speakup...", slog.String("version", Version), slog.String("commit", Commit))

	var redisClient *redis.Client
	var speechCache *cache.Cache
	if cfg.Redis.Enabled {
		slog.Info("Redis is enabled, setting up cache")
		redisClient = connectRedis(cfg.Redis)
		defer redisClient.Close()

		speechCache = cache.New(&cache.Options{
			Redis:      redisClient,
			LocalCache: cache.NewTinyLFU(5, time.Minute),
		})
	} else {
		slog.Info("Redis is disabled, no cache will be used")
	}

	var googleEngine tts.Engine
	if cfg.TTS.GoogleEnabled {
		slog.Info("Connecting to Google Cloud TTS")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ttsClient, err := texttospeech.NewClient(ctx)
		cancel()
		if err != nil {
			slog.Error("Failed to create TTS client", slog.Any("err", err))
			os.Exit(-1)
		}
		defer ttsClient.Close()
		googleEngine = tts.NewGoogleTTSEngine(ttsClient)
	}

	db := connectDatabase(cfg.Database)
	defer db.Close()

	presets := buildPresets(cfg.Presets)
	overrides := voice.NewOverrideRepository(db)
	resolver, err := voice.NewResolver(presets, overrides, voice.Mapping{
		A:       voice.PresetID(cfg.Voices.A),
		B:       voice.PresetID(cfg.Voices.B),
		Default: voice.PresetID(cfg.Voices.Default),
	})
	if err != nil {
		slog.Error("Failed to create voice resolver", slog.Any("err", err))
		os.Exit(-1)
	}

	texts, err := i18n.LoadTextResources(cfg.Page.FallbackLocale)
	if err != nil {
		slog.Error("Failed to load page text", slog.Any("err", err))
		os.Exit(-1)
	}
	pages, err := page.NewWriter(cfg.Storage.GeneratedDir, generatedURLPrefix, texts.Lookup(cfg.Page.Locale))
	if err != nil {
		slog.Error("Failed to create page writer", slog.Any("err", err))
		os.Exit(-1)
	}

	buildServices := func(llmKey, ttsKey string) (*pipeline.Services, error) {
		generator := dialogue.NewOpenAIGenerator(openaiclient.New(openaiclient.Config{
			APIKey:  llmKey,
			BaseURL: cfg.LLM.BaseURL,
		}), cfg.LLM.Model, cfg.LLM.Timeout)

		var engine tts.Engine = tts.NewOpenAIEngine(openaiclient.New(openaiclient.Config{
			APIKey:  ttsKey,
			BaseURL: cfg.TTS.BaseURL,
		}), cfg.TTS.Model)
		if speechCache != nil {
			engine = tts.NewCachedEngine(engine, speechCache, cfg.Redis.TTL, nil)
		}

		engines := tts.NewEngineRegistry()
		if err := engines.Register("openai", engine); err != nil {
			return nil, err
		}
		if googleEngine != nil {
			if err := engines.Register("google", googleEngine); err != nil {
				return nil, err
			}
		}

		synthesizer, err := tts.NewSynthesizer(engines, cfg.Storage.AudioDir, audioURLPrefix, cfg.TTS.Timeout)
		if err != nil {
			return nil, err
		}

		return &pipeline.Services{
			Generator:   generator,
			Translator:  generator,
			Synthesizer: synthesizer,
			Voices:      resolver,
			Pages:       pages,
		}, nil
	}

	var services *pipeline.Services
	if cfg.LLM.APIKey != "" {
		services, err = buildServices(cfg.LLM.APIKey, cfg.TTS.APIKey)
		if err != nil {
			slog.Error("Failed to build services", slog.Any("err", err))
			os.Exit(-1)
		}
	} else {
		slog.Warn("No API key configured, waiting for POST /api/config")
	}

	var registry task.Registry
	switch cfg.Registry.Backend {
	case "redis":
		registry = task.NewRedisRegistry(redisClient, cfg.Registry.Retention)
	default:
		registry = task.NewMemoryRegistry(cfg.Registry.Retention, cfg.Registry.MaxTasks)
	}

	dispatcher := pipeline.NewDispatcher(pipeline.New(registry), pipeline.DispatcherConfig{
		Workers:    cfg.Pipeline.Workers,
		QueueSize:  cfg.Pipeline.QueueSize,
		JobTimeout: cfg.Pipeline.JobTimeout,
	})
	dispatcher.Start()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go task.RunSweeper(sweepCtx, registry, max(cfg.Registry.Retention/4, time.Minute))

	srv := server.New(server.Options{
		Registry:   registry,
		Dispatcher: dispatcher,
		History:    history.NewStore(cfg.Storage.GeneratedDir, generatedURLPrefix),
		Presets:    presets,
		Overrides:  overrides,
		Voices:     resolver,
		Factory: func(apiKey string) (*pipeline.Services, error) {
			return buildServices(apiKey, apiKey)
		},
		Services:     services,
		GeneratedDir: cfg.Storage.GeneratedDir,
		AudioDir:     cfg.Storage.AudioDir,
		Version:      Version,
	})

	go func() {
		if err := srv.Start(cfg.Server.Addr); err != nil {
			slog.Error("HTTP server failed", slog.Any("err", err))
			os.Exit(-1)
		}
	}()

	slog.Info("speakup is running. Press CTRL-C to exit.", slog.String("addr", cfg.Server.Addr))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Failed to shut down HTTP server", slog.Any("err", err))
	}
	if err := dispatcher.Stop(ctx); err != nil {
		slog.Warn("Jobs were interrupted by shutdown", slog.Any("err", err))
	}
}

func connectRedis(cfg speakup.RedisConfig) *redis.Client {
	slog.Info("Connecting to Redis")
	options, err := redis.ParseURL(cfg.Url)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("err", err))
		os.Exit(-1)
	}
	redisClient := redis.NewClient(options)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("err", err))
		os.Exit(-1)
	}
	slog.Info("Connected to Redis")
	return redisClient
}

func connectDatabase(cfg speakup.DatabaseConfig) *sqlx.DB {
	slog.Info("Connecting to database", slog.String("driver", cfg.Driver))
	db, err := sqlx.Connect(cfg.Driver, cfg.Dsn)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("err", err))
		os.Exit(-1)
	}
	if err := migrations.Up(db.DB, cfg.Driver); err != nil {
		slog.Error("Failed to migrate database", slog.Any("err", err))
		os.Exit(-1)
	}
	return db
}

func buildPresets(configs map[string]speakup.PresetConfig) *voice.Registry {
	ids := lo.Keys(configs)
	slices.Sort(ids)

	registry := voice.NewRegistry()
	for _, id := range ids {
		c := configs[id]
		err := registry.Register(voice.Preset{
			Identifier:   voice.PresetID(id),
			Engine:       c.Engine,
			Language:     c.Language,
			VoiceName:    c.VoiceName,
			SpeakingRate: c.SpeakingRate,
		})
		if err != nil {
			slog.Error("Failed to register preset", slog.String("preset", id), slog.Any("err", err))
			os.Exit(-1)
		}
	}
	return registry
}

func setupLogger(cfg speakup.LogConfig) {
	opts := &slog.HandlerOptions{
		AddSource: cfg.AddSource,
		Level:     cfg.Level,
	}

	var sHandler slog.Handler
	switch cfg.Format {
	case "json":
		sHandler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		sHandler = slog.NewTextHandler(os.Stdout, opts)
	default:
		slog.Error("Unknown log format", slog.String("format", cfg.Format))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(sHandler))
}
