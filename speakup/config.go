package speakup

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "SPEAKUP"

// LoadConfig reads the TOML file at path. Every key can be overridden by an
// environment variable such as SPEAKUP_LLM_API_KEY or SPEAKUP_LOG_LEVEL.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	err := v.Unmarshal(&cfg,
		func(dc *mapstructure.DecoderConfig) { dc.TagName = "toml" },
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.generated_dir", "generated")
	v.SetDefault("storage.audio_dir", "static/audio")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("llm.model", "deepseek-v3.2")
	v.SetDefault("llm.timeout", 90*time.Second)

	v.SetDefault("tts.api_key", "")
	v.SetDefault("tts.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("tts.model", "cosyvoice-v2")
	v.SetDefault("tts.timeout", 30*time.Second)
	v.SetDefault("tts.google_enabled", false)

	v.SetDefault("voices.a", "female")
	v.SetDefault("voices.b", "male")
	v.SetDefault("voices.default", "male")

	v.SetDefault("presets.female.engine", "openai")
	v.SetDefault("presets.female.language", "en-US")
	v.SetDefault("presets.female.voice_name", "loongava_v2")
	v.SetDefault("presets.female.speaking_rate", 1.0)
	v.SetDefault("presets.male.engine", "openai")
	v.SetDefault("presets.male.language", "en-US")
	v.SetDefault("presets.male.voice_name", "loongandy_v2")
	v.SetDefault("presets.male.speaking_rate", 1.0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "speakup.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("registry.backend", "memory")
	v.SetDefault("registry.retention", time.Hour)
	v.SetDefault("registry.max_tasks", 1000)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 32)
	v.SetDefault("pipeline.job_timeout", 10*time.Minute)

	v.SetDefault("page.locale", "zh-CN")
	v.SetDefault("page.fallback_locale", "zh-CN")
}

type Config struct {
	Log      LogConfig               `toml:"log"`
	Server   ServerConfig            `toml:"server"`
	Storage  StorageConfig           `toml:"storage"`
	LLM      LLMConfig               `toml:"llm"`
	TTS      TTSConfig               `toml:"tts"`
	Voices   VoicesConfig            `toml:"voices"`
	Presets  map[string]PresetConfig `toml:"presets"`
	Database DatabaseConfig          `toml:"database"`
	Redis    RedisConfig             `toml:"redis"`
	Registry RegistryConfig          `toml:"registry"`
	Pipeline PipelineConfig          `toml:"pipeline"`
	Page     PageConfig              `toml:"page"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type StorageConfig struct {
	GeneratedDir string `toml:"generated_dir"`
	AudioDir     string `toml:"audio_dir"`
}

type LLMConfig struct {
	APIKey  string        `toml:"api_key"`
	BaseURL string        `toml:"base_url"`
	Model   string        `toml:"model"`
	Timeout time.Duration `toml:"timeout"`
}

// TTSConfig configures the openai-compatible speech engine. An empty APIKey
// falls back to the LLM key since both usually come from the same provider.
type TTSConfig struct {
	APIKey        string        `toml:"api_key"`
	BaseURL       string        `toml:"base_url"`
	Model         string        `toml:"model"`
	Timeout       time.Duration `toml:"timeout"`
	GoogleEnabled bool          `toml:"google_enabled"`
}

// VoicesConfig maps speaker tags to preset identifiers.
type VoicesConfig struct {
	A       string `toml:"a"`
	B       string `toml:"b"`
	Default string `toml:"default"`
}

type PresetConfig struct {
	Engine       string  `toml:"engine"`
	Language     string  `toml:"language"`
	VoiceName    string  `toml:"voice_name"`
	SpeakingRate float64 `toml:"speaking_rate"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Dsn    string `toml:"dsn"`
}

type RedisConfig struct {
	Enabled bool          `toml:"enabled"`
	Url     string        `toml:"url"`
	TTL     time.Duration `toml:"ttl"`
}

type RegistryConfig struct {
	Backend   string        `toml:"backend"`
	Retention time.Duration `toml:"retention"`
	MaxTasks  int           `toml:"max_tasks"`
}

type PipelineConfig struct {
	Workers    int           `toml:"workers"`
	QueueSize  int           `toml:"queue_size"`
	JobTimeout time.Duration `toml:"job_timeout"`
}

type PageConfig struct {
	Locale         string `toml:"locale"`
	FallbackLocale string `toml:"fallback_locale"`
}

// viper lower-cases map keys, so preset references are lower-cased too.
func (c *Config) normalize() {
	c.Voices.A = strings.ToLower(c.Voices.A)
	c.Voices.B = strings.ToLower(c.Voices.B)
	c.Voices.Default = strings.ToLower(c.Voices.Default)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = c.LLM.APIKey
	}
}

func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch c.Registry.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("registry backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown registry backend %q", c.Registry.Backend)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be positive, got %d", c.Pipeline.QueueSize)
	}
	if c.Registry.MaxTasks <= 0 {
		return fmt.Errorf("registry.max_tasks must be positive, got %d", c.Registry.MaxTasks)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	for id, p := range c.Presets {
		if p.Engine == "" {
			return fmt.Errorf("preset %s has no engine", id)
		}
	}
	return nil
}
