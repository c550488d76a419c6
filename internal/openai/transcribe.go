package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

type TranscriptionRequest struct {
	Model    string
	FilePath string
	Language string
	// ResponseFormat is "json" or "verbose_json"; verbose_json returns segments.
	ResponseFormat string
	Prompt         string
}

type TranscriptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Segments []TranscriptionSegment `json:"segments"`
}

// Transcribe uploads an audio file to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (*Transcription, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	format := req.ResponseFormat
	if format == "" {
		format = "json"
	}
	fields := map[string]string{
		"model":           req.Model,
		"response_format": format,
		"language":        req.Language,
		"prompt":          req.Prompt,
	}
	if format == "verbose_json" {
		fields["timestamp_granularities[]"] = "segment"
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcriptionsPath, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var out Transcription
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
