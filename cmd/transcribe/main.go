package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"recipeshorts/internal/app"
	"recipeshorts/internal/asr"
	"recipeshorts/internal/config"
	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		inputFile  string
		outputFile string
		format     string
		provider   string
		modelDir   string
		language   string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe an audio or video file with the configured speech-to-text provider",
		Example: "  transcribe -i audio.m4a\n" +
			"  transcribe -i audio.wav --provider local --model models/sherpa-onnx-whisper-small\n" +
			"  transcribe -i video.mp4 --format srt -o subtitles.srt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputFile == "" {
				return fmt.Errorf("input file is required")
			}
			if _, err := os.Stat(inputFile); os.IsNotExist(err) {
				return fmt.Errorf("input file not found: %s", inputFile)
			}
			if format != "text" && format != "json" && format != "srt" {
				return fmt.Errorf("invalid format %q: must be text, json or srt", format)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.STT.Provider = provider
			}
			if modelDir != "" {
				cfg.STT.ModelDir = modelDir
			}
			if language != "" {
				cfg.STT.Language = language
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.Nop()
			if verbose {
				if log, err = logger.New(cfg.LogMode); err != nil {
					return err
				}
				defer log.Sync()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			transcriber, closeFn := app.NewTranscriber(cfg, log)
			defer closeFn()

			if verbose {
				if d, err := asr.GetAudioDuration(ctx, inputFile); err == nil {
					fmt.Fprintf(os.Stderr, "Audio duration: %.2fs\n", d)
				}
				fmt.Fprintf(os.Stderr, "Transcribing with %s...\n", transcriber.Name())
			}

			tr, err := transcriber.Transcribe(ctx, inputFile)
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}

			output, err := formatTranscript(tr, format)
			if err != nil {
				return err
			}
			if outputFile == "" {
				fmt.Println(output)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(output), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input audio or video file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, srt")
	cmd.Flags().StringVar(&provider, "provider", "", "speech-to-text provider: openai or local (default: STT_PROVIDER)")
	cmd.Flags().StringVar(&modelDir, "model", "", "sherpa-onnx model directory for the local provider")
	cmd.Flags().StringVar(&language, "language", "", "language hint, e.g. ko")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	return cmd
}

func formatTranscript(tr *models.Transcript, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(tr, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data), nil
	case "srt":
		return asr.FormatAsSRT(tr.Segments), nil
	default:
		return tr.FullText, nil
	}
}
