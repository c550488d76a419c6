package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"recipeshorts/internal/asr"
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
		format     string
		outputFile string
		dir        string
		listLangs  bool
	)

	cmd := &cobra.Command{
		Use:   "youtube-caption <youtube-url>",
		Short: "Fetch and parse the preferred subtitle track of a video",
		Example: "  youtube-caption https://www.youtube.com/watch?v=xxx\n" +
			"  youtube-caption https://youtu.be/xxx --format srt -o output.srt\n" +
			"  youtube-caption https://youtu.be/xxx --list",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validFormats := map[string]bool{"text": true, "json": true, "srt": true, "vtt": true}
			if !validFormats[format] {
				return fmt.Errorf("invalid format %q: must be text, json, srt or vtt", format)
			}
			url := args[0]
			if _, err := youtube.ParseVideoURL(url); err != nil {
				return err
			}

			ctx := context.Background()
			client := youtube.NewClient(youtube.Options{Retries: 1}, nil)

			if listLangs {
				video, err := client.GetVideo(ctx, url)
				if err != nil {
					return err
				}
				printVideoInfo(video)
				printCaptionList(video)
				return nil
			}

			if dir == "" {
				tmp, err := os.MkdirTemp("", "captions-*")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmp)
				dir = tmp
			}

			sub, err := client.FetchSubtitles(ctx, url, dir)
			if err != nil {
				return fmt.Errorf("failed to fetch captions: %w", err)
			}
			if sub == nil {
				return fmt.Errorf("no captions available for this video")
			}
			tr, err := youtube.SubtitleParser{}.Parse(sub.Path)
			if err != nil {
				return err
			}
			if tr == nil {
				return fmt.Errorf("caption track %s has no usable text", sub.Language)
			}
			tr.Language = sub.Language
			fmt.Fprintf(os.Stderr, "Fetched %d caption entries (%s, auto=%v)\n", len(tr.Segments), sub.Language, sub.IsAutoGenerated)

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
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, srt, vtt")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&dir, "dir", "", "keep the raw subtitle file in this directory")
	cmd.Flags().BoolVar(&listLangs, "list", false, "list available captions")
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
	case "vtt":
		return youtube.FormatAsVTT(tr.Segments), nil
	default:
		lines := make([]string, len(tr.Segments))
		for i, s := range tr.Segments {
			lines[i] = s.Text
		}
		return strings.Join(lines, "\n"), nil
	}
}

func printVideoInfo(video *youtube.VideoInfo) {
	fmt.Println("=== Video Info ===")
	fmt.Printf("Title:    %s\n", video.Title)
	fmt.Printf("Author:   %s\n", video.Author)
	fmt.Printf("Duration: %s\n", video.Duration)
	fmt.Printf("ID:       %s\n", video.ID)
}

func printCaptionList(video *youtube.VideoInfo) {
	fmt.Println("\n=== Available Captions ===")
	if len(video.Captions) == 0 {
		fmt.Println("No captions available")
		return
	}
	for i, c := range video.Captions {
		kind := "manual"
		if c.IsAutoGenerated() {
			kind = "auto"
		}
		fmt.Printf("%d. %s (%s, %s)\n", i+1, c.LanguageCode, c.Name, kind)
	}
}
