package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
)

const (
	StageDownload   = "download"
	StageTranscript = "transcript"
	StageParsing    = "parsing"
	StagePipeline   = "pipeline" // failures outside a provider stage

	maxFailureMessage    = 300
	subtitleSourcePrefix = "youtube_"

	// TaskAnalyze is the worker task type that runs the pipeline.
	TaskAnalyze = "analyze"
)

// ErrTranscriptTooShort is returned when neither subtitles nor speech-to-text
// produced enough text to parse.
var ErrTranscriptTooShort = errors.New("transcript too short")

// StageError attaches the failing stage to a provider error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// VideoProvider downloads media and subtitles for a video URL.
type VideoProvider interface {
	Download(ctx context.Context, url, dir string) (*models.VideoInfo, error)
	FetchSubtitles(ctx context.Context, url, dir string) (*models.SubtitleInfo, error)
}

// SubtitleParser turns a saved subtitle file into a transcript. A nil
// transcript means the file had no usable text.
type SubtitleParser interface {
	Parse(path string) (*models.Transcript, error)
}

// Transcriber is a speech-to-text provider.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error)
}

// RecipeParser never fails; a degraded recipe is returned instead.
type RecipeParser interface {
	Parse(ctx context.Context, transcript *models.Transcript) *models.Recipe
}

// Archiver persists completed results.
type Archiver interface {
	Save(ctx context.Context, jobID, url string, result *models.Result) error
}

// Publisher pushes progress events to external listeners.
type Publisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
}

// JobStore is the subset of the job table the pipeline writes to.
type JobStore interface {
	Get(jobID string) (models.Job, bool)
	Update(jobID string, u models.JobUpdate) bool
	JobDir(jobID string) string
}

// Options tunes the transcript stage.
type Options struct {
	PreferSubtitles     bool
	MinTranscriptLength int
}

// Pipeline runs download → transcript → parsing for one job.
type Pipeline struct {
	jobs      JobStore
	video     VideoProvider
	subtitles SubtitleParser
	stt       Transcriber
	recipes   RecipeParser
	archive   Archiver
	publisher Publisher
	opts      Options
	log       *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Deps groups the pipeline collaborators. Archive and Publisher are optional.
type Deps struct {
	Jobs      JobStore
	Video     VideoProvider
	Subtitles SubtitleParser
	STT       Transcriber
	Recipes   RecipeParser
	Archive   Archiver
	Publisher Publisher
}

// NewPipeline creates a new Pipeline
func NewPipeline(deps Deps, opts Options, log *logger.Logger) *Pipeline {
	if opts.MinTranscriptLength <= 0 {
		opts.MinTranscriptLength = 20
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		jobs:      deps.Jobs,
		video:     deps.Video,
		subtitles: deps.Subtitles,
		stt:       deps.STT,
		recipes:   deps.Recipes,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		opts:      opts,
		log:       log,
		tracer:    otel.Tracer("recipeshorts/ingestion"),
		now:       time.Now,
	}
}

// Run executes the pipeline for jobID. The outcome is recorded on the job;
// the returned error is the same failure for callers that want it.
func (p *Pipeline) Run(ctx context.Context, jobID, url string) error {
	ctx, span := p.tracer.Start(ctx, "ingestion.run", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("video.url", url),
	))
	defer span.End()

	log := p.log.With("job_id", jobID)
	if _, ok := p.jobs.Get(jobID); !ok {
		log.Warn("job vanished before pipeline start")
		return nil
	}
	started := p.now()

	result, err := p.safeRun(ctx, jobID, url, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("pipeline failed", "error", err)
		msg := truncateRunes(err.Error(), maxFailureMessage)
		progress := 0
		p.update(ctx, jobID, models.JobUpdate{Progress: &progress, Message: &msg}.WithStatus(models.JobStatusFailed))
		return err
	}

	result.Timing.Total = seconds(p.now().Sub(started))
	done := models.Progressf(100, models.JobStepDone, "레시피 추출 완료!")
	done.Result = result
	if !p.update(ctx, jobID, done.WithStatus(models.JobStatusCompleted)) {
		log.Warn("job deleted during pipeline, result discarded")
		return nil
	}
	log.Info("pipeline completed",
		"title", result.Recipe.Title,
		"steps", result.Recipe.TotalSteps(),
		"source", result.Timing.TranscriptSource,
		"total_seconds", result.Timing.Total,
	)

	if p.archive != nil {
		if err := p.archive.Save(ctx, jobID, url, result); err != nil {
			log.Warn("failed to archive recipe", "error", err)
		}
	}
	return nil
}

// safeRun turns a panic outside a stage into a failure so the job always
// reaches a terminal state.
func (p *Pipeline) safeRun(ctx context.Context, jobID, url string, log *logger.Logger) (result *models.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &StageError{Stage: StagePipeline, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.run(ctx, jobID, url, log)
}

func (p *Pipeline) run(ctx context.Context, jobID, url string, log *logger.Logger) (*models.Result, error) {
	dir := p.jobs.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StageError{Stage: StageDownload, Err: err}
	}
	p.update(ctx, jobID, models.Progressf(5, models.JobStepDownload, "영상 다운로드 중...").
		WithStatus(models.JobStatusProcessing))

	var timing models.Timing

	// 1. download
	t0 := p.now()
	var info *models.VideoInfo
	err := p.stage(ctx, StageDownload, func(ctx context.Context) error {
		var err error
		info, err = p.video.Download(ctx, url, dir)
		if err == nil && info == nil {
			err = errors.New("video provider returned no video info")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	timing.Download = seconds(p.now().Sub(t0))
	u := models.Progressf(25, models.JobStepDownload, "다운로드 완료!")
	u.VideoInfo = info
	p.update(ctx, jobID, u)
	log.Info("download finished", "video_id", info.VideoID, "seconds", timing.Download)

	// 2. transcript
	t0 = p.now()
	var transcript *models.Transcript
	err = p.stage(ctx, StageTranscript, func(ctx context.Context) error {
		var err error
		transcript, err = p.transcript(ctx, jobID, url, dir, info, log)
		return err
	})
	if err != nil {
		return nil, err
	}
	timing.Transcript = seconds(p.now().Sub(t0))
	timing.TranscriptSource = transcript.Source
	p.update(ctx, jobID, models.Progressf(50, transcriptStep(transcript), "텍스트 추출 완료!"))

	// 3. parsing
	p.update(ctx, jobID, models.Progressf(55, models.JobStepParsing, "레시피 분석 중..."))
	t0 = p.now()
	var recipe *models.Recipe
	err = p.stage(ctx, StageParsing, func(ctx context.Context) error {
		if recipe = p.recipes.Parse(ctx, transcript); recipe == nil {
			return errors.New("recipe parser returned no recipe")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	timing.Parsing = seconds(p.now().Sub(t0))
	if recipe.IsDegraded() {
		log.Warn("recipe parsing degraded", "error", recipe.Error)
	}
	p.update(ctx, jobID, models.Progressf(90, models.JobStepParsing, "레시피 분석 완료!"))

	return &models.Result{
		Recipe:     recipe,
		VideoInfo:  info,
		Transcript: transcript,
		Timing:     timing,
	}, nil
}

// transcript tries subtitles first when enabled and falls back to speech-to-text.
func (p *Pipeline) transcript(ctx context.Context, jobID, url, dir string, info *models.VideoInfo, log *logger.Logger) (*models.Transcript, error) {
	if p.opts.PreferSubtitles {
		p.update(ctx, jobID, models.Progressf(28, models.JobStepSubtitle, "YouTube 자막 확인 중..."))
		tr, err := p.fromSubtitles(ctx, url, dir)
		switch {
		case err != nil:
			log.Warn("subtitle path failed, falling back to speech-to-text", "error", err)
		case tr == nil:
			log.Info("no usable subtitles, falling back to speech-to-text")
		default:
			return tr, nil
		}
	}

	p.update(ctx, jobID, models.Progressf(35, models.JobStepSTT, "음성 인식 중..."))
	tr, err := p.stt.Transcribe(ctx, info.AudioPath)
	if err != nil {
		return nil, err
	}
	if tr == nil || utf8.RuneCountInString(tr.FullText) < p.opts.MinTranscriptLength {
		n := 0
		if tr != nil {
			n = utf8.RuneCountInString(tr.FullText)
		}
		return nil, fmt.Errorf("%w: %d characters (minimum %d)", ErrTranscriptTooShort, n, p.opts.MinTranscriptLength)
	}
	if tr.Source == "" {
		tr.Source = p.stt.Name()
	}
	return tr, nil
}

// fromSubtitles returns nil without error when subtitles are missing or too short.
func (p *Pipeline) fromSubtitles(ctx context.Context, url, dir string) (*models.Transcript, error) {
	sub, err := p.video.FetchSubtitles(ctx, url, dir)
	if err != nil || sub == nil {
		return nil, err
	}
	tr, err := p.subtitles.Parse(sub.Path)
	if err != nil || tr == nil {
		return nil, err
	}
	if utf8.RuneCountInString(tr.FullText) < p.opts.MinTranscriptLength {
		return nil, nil
	}
	tr.Language = sub.Language
	tr.Source = subtitleSourcePrefix + sub.Language
	if sub.IsAutoGenerated {
		tr.Source += "_auto"
	}
	return tr, nil
}

// transcriptStep reports which branch produced the transcript.
func transcriptStep(tr *models.Transcript) string {
	if strings.HasPrefix(tr.Source, subtitleSourcePrefix) {
		return models.JobStepSubtitle
	}
	return models.JobStepSTT
}

// stage runs fn inside a span. Errors and provider panics come back as a StageError.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	ctx, span := p.tracer.Start(ctx, "ingestion."+name)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			err = &StageError{Stage: name, Err: err}
		}
	}()
	return fn(ctx)
}

// update writes to the job store and publishes the resulting snapshot.
// Writes to deleted jobs are dropped and reported as false.
func (p *Pipeline) update(ctx context.Context, jobID string, u models.JobUpdate) bool {
	if !p.jobs.Update(jobID, u) {
		return false
	}
	if p.publisher == nil {
		return true
	}
	job, ok := p.jobs.Get(jobID)
	if !ok {
		return true
	}
	if err := p.publisher.Publish(ctx, models.EventFromJob(job)); err != nil {
		p.log.Debug("progress publish failed", "job_id", jobID, "error", err)
	}
	return true
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
