// Package chat answers questions about a recipe one step at a time.
package chat

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/openai"
	"recipeshorts/internal/retry"
	"recipeshorts/internal/storage"
)

//go:embed prompts/assistant.tmpl
var assistantPrompt string

var promptTemplate = template.Must(template.New("assistant").Parse(assistantPrompt))

var (
	ErrImageTooLarge    = errors.New("image too large")
	ErrCompletionFailed = errors.New("assistant reply failed")
)

const maxErrorSummary = 100

type completer interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

// SessionStore is the session table the assistant reads and commits to.
type SessionStore interface {
	Create(recipe models.Recipe) (models.Session, error)
	Get(id string) (models.Session, error)
	CompleteStep(id string, step int) (models.StepCompletion, error)
	CommitTurn(id string, step int, user, assistant models.Turn) (models.Session, error)
	End(id string) (models.SessionSummary, error)
}

type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	HistoryWindow int
	MaxImageBytes int64
	MaxRetries    int
	RetryInterval time.Duration
}

// Assistant handles chat turns for cooking sessions.
type Assistant struct {
	sessions SessionStore
	client   completer
	opts     Options
	log      *logger.Logger
}

func NewAssistant(sessions SessionStore, client completer, opts Options, log *logger.Logger) *Assistant {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.HistoryWindow < 0 {
		opts.HistoryWindow = 0
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Assistant{sessions: sessions, client: client, opts: opts, log: log}
}

// StepInfo describes one step relative to a session.
type StepInfo struct {
	StepNumber  int     `json:"step_number"`
	Instruction string  `json:"instruction"`
	Tips        string  `json:"tips"`
	Duration    string  `json:"duration"`
	Timestamp   float64 `json:"timestamp"`
	IsCompleted bool    `json:"is_completed"`
	IsCurrent   bool    `json:"is_current"`
}

// Status is the externally visible state of a session.
type Status struct {
	SessionID       string `json:"session_id"`
	RecipeTitle     string `json:"recipe_title"`
	CurrentStep     int    `json:"current_step"`
	TotalSteps      int    `json:"total_steps"`
	CompletedSteps  []int  `json:"completed_steps"`
	ProgressPercent int    `json:"progress_percent"`
}

// TurnRequest is one user message. Image holds raw image bytes, if any.
type TurnRequest struct {
	SessionID  string
	StepNumber int
	Message    string
	Image      []byte
}

type TurnResult struct {
	Reply   string   `json:"reply"`
	Step    StepInfo `json:"step_info"`
	Session Status   `json:"session_status"`
}

// Start opens a session for recipe.
func (a *Assistant) Start(recipe models.Recipe) (models.Session, error) {
	sess, err := a.sessions.Create(recipe)
	if err != nil {
		return models.Session{}, err
	}
	a.log.Info("chat session started", "session_id", sess.ID, "recipe", recipe.Title, "steps", sess.TotalSteps())
	return sess, nil
}

func (a *Assistant) Status(id string) (Status, error) {
	sess, err := a.sessions.Get(id)
	if err != nil {
		return Status{}, err
	}
	return statusOf(sess), nil
}

// Step returns the details of step n.
func (a *Assistant) Step(id string, n int) (StepInfo, error) {
	sess, err := a.sessions.Get(id)
	if err != nil {
		return StepInfo{}, err
	}
	step, ok := sess.Recipe.StepAt(n)
	if !ok {
		return StepInfo{}, invalidStep(n, sess.TotalSteps())
	}
	return stepInfo(sess, n, step), nil
}

func (a *Assistant) CompleteStep(id string, n int) (models.StepCompletion, error) {
	return a.sessions.CompleteStep(id, n)
}

func (a *Assistant) History(id string) (models.Session, error) {
	return a.sessions.Get(id)
}

func (a *Assistant) End(id string) (models.SessionSummary, error) {
	summary, err := a.sessions.End(id)
	if err == nil {
		a.log.Info("chat session ended", "session_id", id, "messages", summary.TotalMessages)
	}
	return summary, err
}

// Send validates the turn, asks the model and commits both turns on success.
// A failed turn leaves the session history untouched.
func (a *Assistant) Send(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sess, err := a.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	step, ok := sess.Recipe.StepAt(req.StepNumber)
	if !ok {
		return nil, invalidStep(req.StepNumber, sess.TotalSteps())
	}
	if int64(len(req.Image)) > a.opts.MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d MB)", ErrImageTooLarge, len(req.Image), a.opts.MaxImageBytes>>20)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" && len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: empty message", storage.ErrInvalidInput)
	}

	system, err := systemPrompt(sess.Recipe, step, req.StepNumber)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("[Step %d 진행 중] %s", req.StepNumber, message)
	user := models.Turn{Role: models.RoleUser, Content: text, StepNumber: req.StepNumber}
	if len(req.Image) > 0 {
		user.Image = dataURL(req.Image)
		user.HasImage = true
	}

	messages := make([]openai.Message, 0, a.opts.HistoryWindow+2)
	messages = append(messages, openai.Message{Role: "system", Content: system})
	for _, turn := range lastTurns(sess.History, a.opts.HistoryWindow) {
		messages = append(messages, toMessage(turn))
	}
	messages = append(messages, toMessage(user))

	reply, err := a.complete(ctx, req.SessionID, messages)
	if err != nil {
		return nil, err
	}

	assistant := models.Turn{Role: models.RoleAssistant, Content: reply, StepNumber: req.StepNumber}
	sess, err = a.sessions.CommitTurn(req.SessionID, req.StepNumber, user, assistant)
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Reply:   reply,
		Step:    stepInfo(sess, req.StepNumber, step),
		Session: statusOf(sess),
	}, nil
}

// complete calls the model. Rate limits and API errors stop immediately;
// dropped connections and empty replies are retried.
func (a *Assistant) complete(ctx context.Context, sessionID string, messages []openai.Message) (string, error) {
	policy := retry.Policy{
		MaxRetries:      a.opts.MaxRetries,
		InitialInterval: a.opts.RetryInterval,
		Retryable: func(err error) bool {
			return openai.IsConnection(err) || errors.Is(err, openai.ErrEmptyResponse)
		},
		OnRetry: func(err error, attempt int, wait time.Duration) {
			a.log.Warn("chat completion failed, retrying", "session_id", sessionID, "attempt", attempt, "error", err)
		},
	}
	reply, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return a.client.Complete(ctx, openai.ChatRequest{
			Model:       a.opts.Model,
			Messages:    messages,
			MaxTokens:   a.opts.MaxTokens,
			Temperature: a.opts.Temperature,
		})
	})
	if err != nil {
		a.log.Error("chat completion failed", "session_id", sessionID, "error", err)
		return "", fmt.Errorf("%w: %s", ErrCompletionFailed, summarize(err))
	}
	return reply, nil
}

func systemPrompt(recipe models.Recipe, step models.Step, n int) (string, error) {
	var sb strings.Builder
	err := promptTemplate.Execute(&sb, map[string]any{
		"Title":       recipe.Title,
		"StepNumber":  n,
		"TotalSteps":  recipe.TotalSteps(),
		"Instruction": step.Instruction,
		"Tips":        step.Tips,
		"Duration":    step.Duration,
		"Difficulty":  recipe.Difficulty,
	})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return sb.String(), nil
}

func toMessage(t models.Turn) openai.Message {
	if t.Image == "" {
		return openai.Message{Role: t.Role, Content: t.Content}
	}
	return openai.Message{Role: t.Role, Content: []openai.ContentPart{
		openai.ImagePart(t.Image),
		openai.TextPart(t.Content),
	}}
}

func lastTurns(history []models.Turn, n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func dataURL(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func summarize(err error) string {
	s := []rune(err.Error())
	if len(s) > maxErrorSummary {
		s = s[:maxErrorSummary]
	}
	return string(s)
}

func invalidStep(n, total int) error {
	return fmt.Errorf("%w: %d (total %d)", storage.ErrInvalidStep, n, total)
}

func stepInfo(sess models.Session, n int, step models.Step) StepInfo {
	return StepInfo{
		StepNumber:  n,
		Instruction: step.Instruction,
		Tips:        step.Tips,
		Duration:    step.Duration,
		Timestamp:   step.Timestamp,
		IsCompleted: sess.IsCompleted(n),
		IsCurrent:   sess.CurrentStep == n,
	}
}

func statusOf(sess models.Session) Status {
	return Status{
		SessionID:       sess.ID,
		RecipeTitle:     sess.Recipe.Title,
		CurrentStep:     sess.CurrentStep,
		TotalSteps:      sess.TotalSteps(),
		CompletedSteps:  sess.CompletedSteps,
		ProgressPercent: sess.ProgressPercent(),
	}
}
