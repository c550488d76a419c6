// Package app wires the stores, providers and background worker from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"recipeshorts/internal/asr"
	"recipeshorts/internal/chat"
	"recipeshorts/internal/config"
	"recipeshorts/internal/handlers"
	"recipeshorts/internal/ingestion"
	"recipeshorts/internal/logger"
	"recipeshorts/internal/notify"
	"recipeshorts/internal/observability"
	"recipeshorts/internal/openai"
	"recipeshorts/internal/recipe"
	"recipeshorts/internal/storage"
	"recipeshorts/internal/stt"
	"recipeshorts/internal/version"
	"recipeshorts/internal/worker"
	"recipeshorts/internal/youtube"
)

type App struct {
	Cfg *config.Config
	Log *logger.Logger

	DB        *storage.DB
	Recipes   *storage.RecipeRepository
	Jobs      *storage.JobStore
	Sessions  *storage.SessionStore
	Video     *youtube.Client
	STT       ingestion.Transcriber
	Pipeline  *ingestion.Pipeline
	Worker    *worker.Worker
	Assistant *chat.Assistant
	Publisher notify.Publisher

	closers []func(context.Context) error
}

// New builds every component. Redis is optional: when it cannot be reached
// progress events are dropped.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Cfg: cfg, Log: log}

	shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version.Version,
		Stdout:      cfg.Tracing.Stdout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	a.DB, err = storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.DB.Close() })
	a.Recipes = storage.NewRecipeRepository(a.DB)

	a.Jobs = storage.NewJobStore(cfg.DataDir, cfg.Jobs.MaxJobs, cfg.Jobs.Expiry, log)
	a.Sessions = storage.NewSessionStore(cfg.Chat.SessionExpiry, log)

	a.Publisher = notify.Nop{}
	if cfg.Redis.Addr != "" {
		pub, err := notify.NewRedisPublisher(ctx, notify.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, progress events disabled", "error", err)
		} else {
			a.Publisher = pub
			a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		}
	}

	a.Video = youtube.NewClient(youtube.Options{MaxDuration: cfg.Jobs.MaxVideoDuration, Retries: 2}, log)

	var closeSTT func() error
	a.STT, closeSTT = NewTranscriber(cfg, log)
	a.closers = append(a.closers, func(context.Context) error { return closeSTT() })

	recipeClient := openai.New(openaiConfig(cfg, "recipe", cfg.OpenAI.RecipeTimeout))
	parser := recipe.NewParser(recipeClient, recipe.Options{
		Model:         cfg.OpenAI.RecipeModel,
		MinTextLength: cfg.Jobs.MinTranscriptLength,
		MaxRetries:    2,
	}, log)

	a.Pipeline = ingestion.NewPipeline(ingestion.Deps{
		Jobs:      a.Jobs,
		Video:     a.Video,
		Subtitles: youtube.SubtitleParser{},
		STT:       a.STT,
		Recipes:   parser,
		Archive:   a.Recipes,
		Publisher: a.Publisher,
	}, ingestion.Options{
		PreferSubtitles:     cfg.Jobs.PreferSubtitles,
		MinTranscriptLength: cfg.Jobs.MinTranscriptLength,
	}, log)

	a.Worker = worker.NewWorker(cfg.Worker.Concurrency, cfg.Worker.QueueSize, log)
	a.Worker.RegisterHandler(ingestion.TaskAnalyze, func(ctx context.Context, task worker.Task) error {
		return a.Pipeline.Run(ctx, task.ID, task.URL)
	})

	chatClient := openai.New(openaiConfig(cfg, "chat", cfg.OpenAI.ChatTimeout))
	a.Assistant = chat.NewAssistant(a.Sessions, chatClient, chat.Options{
		Model:         cfg.OpenAI.ChatModel,
		MaxTokens:     cfg.Chat.MaxTokens,
		Temperature:   cfg.Chat.Temperature,
		HistoryWindow: cfg.Chat.HistoryWindow,
		MaxImageBytes: cfg.Chat.MaxImageBytes,
		MaxRetries:    cfg.Chat.MaxRetries,
	}, log)

	return a, nil
}

// NewTranscriber returns the configured speech-to-text provider and its cleanup func.
func NewTranscriber(cfg *config.Config, log *logger.Logger) (ingestion.Transcriber, func() error) {
	if cfg.STT.Provider == config.STTProviderLocal {
		t := asr.NewLocalTranscriber(cfg.STT.ModelDir, cfg.STT.Language, log)
		return t, t.Close
	}
	client := openai.New(openaiConfig(cfg, "transcribe", cfg.OpenAI.TranscribeTimeout))
	h := stt.NewHybrid(client, stt.HybridOptions{
		AccuracyModel: cfg.OpenAI.AccuracyModel,
		TimingModel:   cfg.OpenAI.TimingModel,
		Language:      cfg.STT.Language,
		MaxBytes:      stt.MaxAudioBytes,
	}, log)
	return h, func() error { return nil }
}

func openaiConfig(cfg *config.Config, name string, read time.Duration) openai.Config {
	return openai.Config{
		Name:           name,
		BaseURL:        cfg.OpenAI.BaseURL,
		APIKey:         cfg.OpenAI.APIKey,
		ConnectTimeout: cfg.OpenAI.ConnectTimeout,
		ReadTimeout:    read,
	}
}

// Server builds the HTTP server over the app's components.
func (a *App) Server() *echo.Echo {
	return handlers.NewServer(handlers.Handlers{
		Jobs:    handlers.NewJobHandler(a.Jobs, a.Worker, a.Log),
		Chat:    handlers.NewChatHandler(a.Assistant, a.Cfg.Chat.MaxImageBytes),
		Recipes: handlers.NewRecipeHandler(a.Recipes),
		Health:  handlers.NewHealthHandler(a.DB, a.Sessions),
	}, a.Log)
}

// Close releases resources in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
