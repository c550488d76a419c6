package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port    int
	DataDir string
	DBPath  string
	LogMode string

	Jobs    Jobs
	Chat    Chat
	OpenAI  OpenAI
	STT     STT
	Redis   Redis
	Worker  Worker
	Tracing Tracing
}

// Jobs configures the job table and the ingestion pipeline.
type Jobs struct {
	MaxJobs             int
	Expiry              time.Duration
	PreferSubtitles     bool
	MinTranscriptLength int
	MaxVideoDuration    time.Duration
}

// Chat configures cooking sessions.
type Chat struct {
	SessionExpiry time.Duration
	MaxImageBytes int64
	HistoryWindow int
	MaxRetries    int
	MaxTokens     int
	Temperature   float64
}

// OpenAI holds credentials, model names and per-provider read timeouts.
type OpenAI struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	RecipeModel       string
	AccuracyModel     string
	TimingModel       string
	ConnectTimeout    time.Duration
	ChatTimeout       time.Duration
	RecipeTimeout     time.Duration
	TranscribeTimeout time.Duration
}

// STT selects the speech-to-text provider.
type STT struct {
	Provider string // "openai" or "local"
	ModelDir string
	Language string
}

// Redis configures the optional job-progress publisher. Empty Addr disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type Worker struct {
	Concurrency int
	QueueSize   int
}

type Tracing struct {
	Stdout      bool
	ServiceName string
}

const (
	STTProviderOpenAI = "openai"
	STTProviderLocal  = "local"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8000)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("DB_PATH", "")
	v.SetDefault("LOG_MODE", "dev")

	v.SetDefault("MAX_JOBS", 100)
	v.SetDefault("JOB_EXPIRE_HOURS", 24)
	v.SetDefault("PREFER_SUBTITLES", false)
	v.SetDefault("MIN_TRANSCRIPT_LENGTH", 20)
	v.SetDefault("MAX_VIDEO_DURATION", 180)

	v.SetDefault("SESSION_EXPIRY", 3600)
	v.SetDefault("MAX_IMAGE_SIZE_MB", 10)
	v.SetDefault("CHAT_HISTORY_WINDOW", 6)
	v.SetDefault("CHAT_MAX_RETRIES", 2)
	v.SetDefault("CHAT_MAX_TOKENS", 500)
	v.SetDefault("CHAT_TEMPERATURE", 0.7)

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("OPENAI_CHAT_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_RECIPE_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_ACCURACY_MODEL", "gpt-4o-transcribe")
	v.SetDefault("OPENAI_TIMING_MODEL", "whisper-1")
	v.SetDefault("OPENAI_CONNECT_TIMEOUT", 30)
	v.SetDefault("OPENAI_CHAT_TIMEOUT", 120)
	v.SetDefault("OPENAI_RECIPE_TIMEOUT", 180)
	v.SetDefault("OPENAI_TRANSCRIBE_TIMEOUT", 300)

	v.SetDefault("STT_PROVIDER", STTProviderOpenAI)
	v.SetDefault("ASR_MODEL_DIR", "models/sherpa-onnx")
	v.SetDefault("STT_LANGUAGE", "ko")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "recipeshorts:jobs")

	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_QUEUE_SIZE", 32)

	v.SetDefault("OTEL_STDOUT", false)
	v.SetDefault("OTEL_SERVICE_NAME", "recipeshorts")
}

// Load reads envFiles (missing files are ignored) and then the process environment.
// With no arguments ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:    v.GetInt("PORT"),
		DataDir: v.GetString("DATA_DIR"),
		DBPath:  v.GetString("DB_PATH"),
		LogMode: v.GetString("LOG_MODE"),
		Jobs: Jobs{
			MaxJobs:             v.GetInt("MAX_JOBS"),
			Expiry:              time.Duration(v.GetInt("JOB_EXPIRE_HOURS")) * time.Hour,
			PreferSubtitles:     v.GetBool("PREFER_SUBTITLES"),
			MinTranscriptLength: v.GetInt("MIN_TRANSCRIPT_LENGTH"),
			MaxVideoDuration:    seconds(v, "MAX_VIDEO_DURATION"),
		},
		Chat: Chat{
			SessionExpiry: seconds(v, "SESSION_EXPIRY"),
			MaxImageBytes: v.GetInt64("MAX_IMAGE_SIZE_MB") * 1024 * 1024,
			HistoryWindow: v.GetInt("CHAT_HISTORY_WINDOW"),
			MaxRetries:    v.GetInt("CHAT_MAX_RETRIES"),
			MaxTokens:     v.GetInt("CHAT_MAX_TOKENS"),
			Temperature:   v.GetFloat64("CHAT_TEMPERATURE"),
		},
		OpenAI: OpenAI{
			APIKey:            v.GetString("OPENAI_API_KEY"),
			BaseURL:           strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
			ChatModel:         v.GetString("OPENAI_CHAT_MODEL"),
			RecipeModel:       v.GetString("OPENAI_RECIPE_MODEL"),
			AccuracyModel:     v.GetString("OPENAI_ACCURACY_MODEL"),
			TimingModel:       v.GetString("OPENAI_TIMING_MODEL"),
			ConnectTimeout:    seconds(v, "OPENAI_CONNECT_TIMEOUT"),
			ChatTimeout:       seconds(v, "OPENAI_CHAT_TIMEOUT"),
			RecipeTimeout:     seconds(v, "OPENAI_RECIPE_TIMEOUT"),
			TranscribeTimeout: seconds(v, "OPENAI_TRANSCRIBE_TIMEOUT"),
		},
		STT: STT{
			Provider: strings.ToLower(v.GetString("STT_PROVIDER")),
			ModelDir: v.GetString("ASR_MODEL_DIR"),
			Language: v.GetString("STT_LANGUAGE"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		Worker: Worker{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
			QueueSize:   v.GetInt("WORKER_QUEUE_SIZE"),
		},
		Tracing: Tracing{
			Stdout:      v.GetBool("OTEL_STDOUT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "recipes.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the stores and pipeline cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR must not be empty"))
	}
	if c.Jobs.MaxJobs < 1 {
		errs = append(errs, fmt.Errorf("MAX_JOBS must be at least 1, got %d", c.Jobs.MaxJobs))
	}
	if c.Chat.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("CHAT_HISTORY_WINDOW must not be negative, got %d", c.Chat.HistoryWindow))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency))
	}
	switch c.STT.Provider {
	case STTProviderOpenAI, STTProviderLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown STT_PROVIDER %q", c.STT.Provider))
	}
	return errors.Join(errs...)
}

// seconds reads an integer number of seconds.
func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}
