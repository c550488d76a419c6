package asr

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/stt"
)

// ProviderName is recorded as the transcript source.
const ProviderName = "local_sherpa"

// LocalTranscriber transcribes audio on this machine with a sherpa-onnx transducer.
// The model is loaded on first use.
type LocalTranscriber struct {
	modelDir string
	language string
	pause    time.Duration
	log      *logger.Logger

	once    sync.Once
	rec     *Recognizer
	loadErr error
}

func NewLocalTranscriber(modelDir, language string, log *logger.Logger) *LocalTranscriber {
	if log == nil {
		log = logger.Nop()
	}
	if language == "" {
		language = "ko"
	}
	return &LocalTranscriber{modelDir: modelDir, language: language, pause: 700 * time.Millisecond, log: log}
}

func (t *LocalTranscriber) Name() string { return ProviderName }

func (t *LocalTranscriber) recognizer() (*Recognizer, error) {
	t.once.Do(func() {
		cfg, err := NewConfig(t.modelDir)
		if err != nil {
			t.loadErr = err
			return
		}
		t.rec, t.loadErr = NewRecognizer(cfg)
		if t.loadErr == nil {
			t.log.Info("local ASR model loaded", "model_dir", cfg.ModelPath)
		}
	})
	return t.rec, t.loadErr
}

// Transcribe converts the audio to 16kHz WAV and decodes it.
func (t *LocalTranscriber) Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %w: audio file not found: %s", stt.ErrTranscription, stt.ErrInvalidAudio, audioPath)
	}
	rec, err := t.recognizer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stt.ErrTranscription, err)
	}

	wavPath := WavPathFor(audioPath)
	if err := ConvertToWav(ctx, audioPath, wavPath); err != nil {
		return nil, fmt.Errorf("%w: %w", stt.ErrTranscription, err)
	}
	defer os.Remove(wavPath)

	duration, err := GetAudioDuration(ctx, wavPath)
	if err != nil {
		t.log.Warn("could not read audio duration", "audio", wavPath, "error", err)
	}

	start := time.Now()
	text, tokens, err := rec.TranscribeFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stt.ErrTranscription, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", stt.ErrTranscription, err)
	}

	fullText := stt.CleanText(text)
	segments := GroupTokens(tokens, t.pause)
	if len(segments) == 0 {
		segments = stt.SplitEvenly(stt.SplitSentences(fullText), duration)
	}
	for i := range segments {
		segments[i].Text = stt.CleanText(segments[i].Text)
	}

	t.log.Info("local transcription finished", "audio", audioPath,
		"chars", len([]rune(fullText)), "segments", len(segments), "elapsed", time.Since(start).Round(time.Millisecond))

	return &models.Transcript{
		FullText: fullText,
		Segments: segments,
		Language: t.language,
		Duration: duration,
		Source:   ProviderName,
	}, nil
}

// Close releases the model if it was loaded.
func (t *LocalTranscriber) Close() error {
	if t.rec != nil {
		return t.rec.Close()
	}
	return nil
}
