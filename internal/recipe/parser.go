// Package recipe turns a transcript into a structured recipe with a chat model.
package recipe

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/openai"
	"recipeshorts/internal/retry"
)

//go:embed prompts/recipe.txt
var systemPrompt string

const (
	// MaxTranscriptRunes bounds the text sent to the model.
	MaxTranscriptRunes = 4000
	errorSummaryRunes  = 100
)

type completer interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

type Options struct {
	Model         string
	MinTextLength int // in runes
	MaxRetries    int
	RetryInterval time.Duration
}

// Parser never fails: on any error it returns a placeholder recipe carrying the error.
type Parser struct {
	client completer
	opts   Options
	log    *logger.Logger
}

func NewParser(client completer, opts Options, log *logger.Logger) *Parser {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 20
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Parser{client: client, opts: opts, log: log}
}

// retryable: malformed output, empty replies and dropped connections get another attempt.
func retryable(err error) bool {
	var de *decodeError
	return errors.As(err, &de) || errors.Is(err, openai.ErrEmptyResponse) || openai.IsConnection(err)
}

// Parse converts the transcript into a recipe.
func (p *Parser) Parse(ctx context.Context, transcript *models.Transcript) *models.Recipe {
	text := ""
	var segments []models.Segment
	if transcript != nil {
		text = strings.TrimSpace(transcript.FullText)
		segments = transcript.Segments
	}

	if n := len([]rune(text)); n < p.opts.MinTextLength {
		p.log.Warn("transcript too short for recipe parsing", "chars", n, "min", p.opts.MinTextLength)
		return Placeholder("", "음성 인식 결과가 너무 짧습니다.", "", "transcript too short")
	}
	if r := []rune(text); len(r) > MaxTranscriptRunes {
		p.log.Warn("transcript truncated for recipe parsing", "chars", len(r), "max", MaxTranscriptRunes)
		text = string(r[:MaxTranscriptRunes])
	}

	req := openai.ChatRequest{
		Model: p.opts.Model,
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildUserMessage(text, segments)},
		},
		JSONMode: true,
	}

	policy := retry.Policy{
		MaxRetries:      p.opts.MaxRetries,
		InitialInterval: p.opts.RetryInterval,
		MaxInterval:     4 * p.opts.RetryInterval,
		Retryable:       retryable,
		OnRetry: func(err error, attempt int, wait time.Duration) {
			p.log.Warn("recipe parsing attempt failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		},
	}
	recipe, err := retry.Do(ctx, policy, func(ctx context.Context) (*models.Recipe, error) {
		reply, err := p.client.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return decodeRecipe(reply)
	})
	if err != nil {
		summary := truncate(err.Error(), errorSummaryRunes)
		p.log.Error("recipe parsing failed", "error", err)
		return Placeholder(FailedTitle, "레시피 분석 중 오류가 발생했습니다: "+summary, text, summary)
	}

	p.log.Info("recipe parsed", "title", recipe.Title, "steps", len(recipe.Steps), "ingredients", len(recipe.Ingredients))
	return recipe
}

// BuildUserMessage lists the full text followed by the timestamped segments.
func BuildUserMessage(fullText string, segments []models.Segment) string {
	var b strings.Builder
	b.WriteString("다음은 요리 영상의 음성 텍스트입니다:\n\n## 전체 텍스트\n")
	b.WriteString(fullText)
	b.WriteString("\n\n## 타임스탬프별 세그먼트\n")
	for _, s := range segments {
		fmt.Fprintf(&b, "[%.1fs - %.1fs]: %s\n", s.Start, s.End, s.Text)
	}
	b.WriteString("\n이 내용을 분석하여 구조화된 레시피 JSON을 생성해주세요.")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
