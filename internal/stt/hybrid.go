// Package stt turns extracted audio into a timestamped transcript using the OpenAI
// transcription endpoint.
package stt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/openai"
)

//go:embed prompts/cooking.txt
var cookingPrompt string

// ProviderName is recorded as the transcript source.
const ProviderName = "openai_hybrid"

type transcriptionClient interface {
	Transcribe(ctx context.Context, req openai.TranscriptionRequest) (*openai.Transcription, error)
}

type HybridOptions struct {
	AccuracyModel string // text quality, e.g. gpt-4o-transcribe
	TimingModel   string // segment timestamps, e.g. whisper-1
	Language      string
	MaxBytes      int64
}

// Hybrid runs two transcriptions of the same audio concurrently: one model for accurate
// text and one for segment timestamps. The accurate text is then laid over the timestamps.
type Hybrid struct {
	client transcriptionClient
	opts   HybridOptions
	log    *logger.Logger
}

func NewHybrid(client transcriptionClient, opts HybridOptions, log *logger.Logger) *Hybrid {
	if opts.AccuracyModel == "" {
		opts.AccuracyModel = "gpt-4o-transcribe"
	}
	if opts.TimingModel == "" {
		opts.TimingModel = "whisper-1"
	}
	if opts.Language == "" {
		opts.Language = "ko"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = MaxAudioBytes
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hybrid{client: client, opts: opts, log: log}
}

func (h *Hybrid) Name() string { return ProviderName }

// Transcribe validates the audio file and returns the merged transcript.
func (h *Hybrid) Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error) {
	if err := ValidateAudio(audioPath, h.opts.MaxBytes); err != nil {
		return nil, err
	}

	start := time.Now()
	h.log.Info("hybrid transcription started", "audio", audioPath,
		"accuracy_model", h.opts.AccuracyModel, "timing_model", h.opts.TimingModel)

	var accurate, timing *openai.Transcription
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := h.client.Transcribe(gctx, openai.TranscriptionRequest{
			Model:          h.opts.AccuracyModel,
			FilePath:       audioPath,
			Language:       h.opts.Language,
			ResponseFormat: "json",
			Prompt:         strings.TrimSpace(cookingPrompt),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", h.opts.AccuracyModel, err)
		}
		accurate = res
		return nil
	})
	g.Go(func() error {
		res, err := h.client.Transcribe(gctx, openai.TranscriptionRequest{
			Model:          h.opts.TimingModel,
			FilePath:       audioPath,
			Language:       h.opts.Language,
			ResponseFormat: "verbose_json",
			Prompt:         strings.TrimSpace(cookingPrompt),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", h.opts.TimingModel, err)
		}
		timing = res
		return nil
	})
	if err := g.Wait(); err != nil {
		h.log.Error("hybrid transcription failed", "audio", audioPath, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	text := CleanText(accurate.Text)
	timingSegs := make([]models.Segment, 0, len(timing.Segments))
	for _, s := range timing.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			timingSegs = append(timingSegs, models.Segment{Start: s.Start, End: s.End, Text: t})
		}
	}

	merged := MergeSegments(text, timingSegs, timing.Duration)
	segments := make([]models.Segment, 0, len(merged))
	for _, s := range merged {
		if s.Text = CleanText(s.Text); s.Text != "" {
			segments = append(segments, s)
		}
	}

	h.log.Info("hybrid transcription finished", "audio", audioPath,
		"chars", len([]rune(text)), "segments", len(segments), "elapsed", time.Since(start).Round(time.Millisecond))

	return &models.Transcript{
		FullText: text,
		Segments: segments,
		Language: h.opts.Language,
		Duration: timing.Duration,
		Source:   ProviderName,
	}, nil
}
