// Command analyze runs the whole extraction pipeline for one URL in the
// foreground and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"recipeshorts/internal/app"
	"recipeshorts/internal/config"
	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/youtube"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		envFile   string
		output    string
		subtitles bool
		keep      bool
	)

	cmd := &cobra.Command{
		Use:     "analyze <youtube-url>",
		Short:   "Extract a recipe from a short cooking video",
		Example: "  analyze https://youtube.com/shorts/xxxxxxxxxxx -o recipe.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			videoID, err := youtube.ParseVideoURL(url)
			if err != nil {
				return err
			}

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("subtitles") {
				cfg.Jobs.PreferSubtitles = subtitles
			}

			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			jobID := uuid.New().String()
			if _, err := a.Jobs.Create(jobID, url, videoID); err != nil {
				return err
			}
			if !keep {
				defer a.Jobs.CleanupArtifacts(jobID)
			}

			if err := a.Pipeline.Run(ctx, jobID, url); err != nil {
				return err
			}
			job, ok := a.Jobs.Get(jobID)
			if !ok || job.Status != models.JobStatusCompleted || job.Result == nil {
				return errors.New("pipeline finished without a result")
			}

			data, err := json.MarshalIndent(job.Result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			if output == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (ignored if missing)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&subtitles, "subtitles", false, "try YouTube subtitles before speech-to-text")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep downloaded media in the data directory")
	return cmd
}
