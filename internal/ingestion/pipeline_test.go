package ingestion

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"recipeshorts/internal/models"
	"recipeshorts/internal/storage"
	"recipeshorts/internal/worker"
)

type fakeVideo struct {
	downloadErr error
	subtitle    *models.SubtitleInfo
	subtitleErr error
	dirs        []string
}

func (f *fakeVideo) Download(ctx context.Context, url, dir string) (*models.VideoInfo, error) {
	f.dirs = append(f.dirs, dir)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return &models.VideoInfo{VideoID: "abc", Title: "김치찌개", URL: url, AudioPath: dir + "/audio.m4a"}, nil
}

func (f *fakeVideo) FetchSubtitles(ctx context.Context, url, dir string) (*models.SubtitleInfo, error) {
	return f.subtitle, f.subtitleErr
}

type fakeSubtitles struct {
	transcript *models.Transcript
}

func (f fakeSubtitles) Parse(path string) (*models.Transcript, error) {
	return f.transcript, nil
}

type fakeSTT struct {
	text   string
	err    error
	panic  string
	during func()
	calls  int
}

func (f *fakeSTT) Name() string { return "fake_stt" }

func (f *fakeSTT) Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	if f.panic != "" {
		panic(f.panic)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Transcript{FullText: f.text, Segments: []models.Segment{{Start: 0, End: 5, Text: f.text}}}, nil
}

type fakeRecipes struct {
	got  *models.Transcript
	none bool
}

func (f *fakeRecipes) Parse(ctx context.Context, tr *models.Transcript) *models.Recipe {
	f.got = tr
	if f.none {
		return nil
	}
	return &models.Recipe{Title: "김치찌개", Steps: []models.Step{{StepNumber: 1, Instruction: "끓이기"}}}
}

type fakeArchive struct {
	saved []string
	err   error
}

func (f *fakeArchive) Save(ctx context.Context, jobID, url string, r *models.Result) error {
	f.saved = append(f.saved, jobID)
	return f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, e models.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

const longText = "양파를 썰고 돼지고기를 볶은 다음 김치를 넣고 끓여주세요"

type fixture struct {
	jobs      *storage.JobStore
	video     *fakeVideo
	stt       *fakeSTT
	recipes   *fakeRecipes
	archive   *fakeArchive
	publisher *recordingPublisher
	subs      fakeSubtitles
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		jobs:      storage.NewJobStore(t.TempDir(), 10, time.Hour, nil),
		video:     &fakeVideo{},
		stt:       &fakeSTT{text: longText},
		recipes:   &fakeRecipes{},
		archive:   &fakeArchive{},
		publisher: &recordingPublisher{},
	}
}

func (f *fixture) pipeline(opts Options) *Pipeline {
	return NewPipeline(Deps{
		Jobs:      f.jobs,
		Video:     f.video,
		Subtitles: f.subs,
		STT:       f.stt,
		Recipes:   f.recipes,
		Archive:   f.archive,
		Publisher: f.publisher,
	}, opts, nil)
}

func (f *fixture) create(t *testing.T, id string) {
	t.Helper()
	if _, err := f.jobs.Create(id, "https://youtu.be/abcdefghijk", "abcdefghijk"); err != nil {
		t.Fatal(err)
	}
}

func TestPipelineSuccess(t *testing.T) {
	f := newFixture(t)
	f.create(t, "job1")

	if err := f.pipeline(Options{}).Run(context.Background(), "job1", "https://youtu.be/abcdefghijk"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusCompleted || job.Progress != 100 || job.Step != models.JobStepDone {
		t.Fatalf("job = %+v", job)
	}
	if job.Result == nil || job.Result.Recipe.Title != "김치찌개" {
		t.Fatalf("result = %+v", job.Result)
	}
	if job.Result.Timing.TranscriptSource != "fake_stt" {
		t.Errorf("source = %q", job.Result.Timing.TranscriptSource)
	}
	if job.VideoInfo == nil || job.VideoInfo.VideoID != "abc" {
		t.Errorf("video info = %+v", job.VideoInfo)
	}
	if _, err := os.Stat(f.jobs.JobDir("job1")); err != nil {
		t.Errorf("job dir not created: %v", err)
	}
	if len(f.archive.saved) != 1 {
		t.Errorf("archive saves = %v", f.archive.saved)
	}

	last := -1
	for _, e := range f.publisher.events {
		if e.Progress < last {
			t.Errorf("progress went backwards: %d after %d", e.Progress, last)
		}
		last = e.Progress
	}
	if last != 100 {
		t.Errorf("last published progress = %d", last)
	}
}

func TestPipelineDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.video.downloadErr = errors.New("private video")
	f.create(t, "job1")

	err := f.pipeline(Options{}).Run(context.Background(), "job1", "u")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageDownload {
		t.Fatalf("err = %v, want download StageError", err)
	}

	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusFailed || job.Progress != 0 || job.Result != nil {
		t.Fatalf("job = %+v", job)
	}
	if job.Message != "download failed: private video" {
		t.Errorf("message = %q", job.Message)
	}
	if f.stt.calls != 0 || len(f.archive.saved) != 0 {
		t.Error("later stages must not run")
	}
}

func TestPipelineShortTranscriptFails(t *testing.T) {
	f := newFixture(t)
	f.stt.text = "짧음"
	f.create(t, "job1")

	err := f.pipeline(Options{}).Run(context.Background(), "job1", "u")
	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("err = %v", err)
	}
	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusFailed || !strings.HasPrefix(job.Message, "transcript failed:") {
		t.Errorf("job = %+v", job)
	}
	if f.recipes.got != nil {
		t.Error("parser must not be called")
	}
}

func TestPipelinePrefersSubtitles(t *testing.T) {
	f := newFixture(t)
	f.video.subtitle = &models.SubtitleInfo{Path: "x.xml", Language: "ko", IsAutoGenerated: true}
	f.subs = fakeSubtitles{transcript: &models.Transcript{FullText: longText}}
	f.create(t, "job1")

	if err := f.pipeline(Options{PreferSubtitles: true}).Run(context.Background(), "job1", "u"); err != nil {
		t.Fatal(err)
	}
	if f.stt.calls != 0 {
		t.Error("speech-to-text should be skipped")
	}
	job, _ := f.jobs.Get("job1")
	if got := job.Result.Timing.TranscriptSource; got != "youtube_ko_auto" {
		t.Errorf("source = %q", got)
	}
	for _, e := range f.publisher.events {
		if e.Progress == 50 && e.Step != models.JobStepSubtitle {
			t.Errorf("step at 50%% = %q, want %q", e.Step, models.JobStepSubtitle)
		}
		if e.Step == models.JobStepSTT {
			t.Errorf("stt step reported at %d%% though subtitles were used", e.Progress)
		}
	}
}

func TestPipelineSubtitleFallback(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.SubtitleInfo
		err  error
		tr   *models.Transcript
	}{
		{"none", nil, nil, nil},
		{"error", nil, errors.New("boom"), nil},
		{"too short", &models.SubtitleInfo{Path: "x", Language: "en"}, nil, &models.Transcript{FullText: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.video.subtitle, f.video.subtitleErr = tt.sub, tt.err
			f.subs = fakeSubtitles{transcript: tt.tr}
			f.create(t, "job1")

			if err := f.pipeline(Options{PreferSubtitles: true}).Run(context.Background(), "job1", "u"); err != nil {
				t.Fatal(err)
			}
			if f.stt.calls != 1 {
				t.Errorf("stt calls = %d", f.stt.calls)
			}
		})
	}
}

func TestPipelineDeletedJob(t *testing.T) {
	f := newFixture(t)
	f.create(t, "job1")
	f.jobs.Delete("job1")

	if err := f.pipeline(Options{}).Run(context.Background(), "job1", "u"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := f.jobs.Get("job1"); ok {
		t.Error("deleted job reappeared")
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("events for deleted job: %d", len(f.publisher.events))
	}
}

func TestFailureMessageTruncated(t *testing.T) {
	f := newFixture(t)
	f.video.downloadErr = errors.New(strings.Repeat("가", 500))
	f.create(t, "job1")

	_ = f.pipeline(Options{}).Run(context.Background(), "job1", "u")
	job, _ := f.jobs.Get("job1")
	if n := len([]rune(job.Message)); n != maxFailureMessage {
		t.Errorf("message runes = %d", n)
	}
}

func TestPipelineSTTErrorFails(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("audio too large")
	f.create(t, "job1")

	err := f.pipeline(Options{}).Run(context.Background(), "job1", "u")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageTranscript {
		t.Fatalf("err = %v, want transcript StageError", err)
	}
	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusFailed || job.Progress != 0 || job.Result != nil {
		t.Fatalf("job = %+v", job)
	}
	if job.Message != "transcript failed: audio too large" {
		t.Errorf("message = %q", job.Message)
	}
	if f.recipes.got != nil || len(f.archive.saved) != 0 {
		t.Error("later stages must not run")
	}
}

func TestPipelineProviderPanicFailsJob(t *testing.T) {
	f := newFixture(t)
	f.stt.panic = "nil model"
	f.create(t, "job1")
	p := f.pipeline(Options{})

	done := make(chan struct{})
	w := worker.NewWorker(1, 1, nil)
	w.RegisterHandler(TaskAnalyze, func(ctx context.Context, task worker.Task) error {
		defer close(done)
		return p.Run(ctx, task.ID, task.URL)
	})
	w.Start(context.Background())
	defer w.Stop()

	if err := w.Submit(worker.Task{Type: TaskAnalyze, ID: "job1", URL: "u"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusFailed || job.Progress != 0 || job.Result != nil {
		t.Fatalf("job = %+v, want failed", job)
	}
	if job.Message != "transcript failed: panic: nil model" {
		t.Errorf("message = %q", job.Message)
	}
}

func TestPipelineNilRecipeFails(t *testing.T) {
	f := newFixture(t)
	f.recipes.none = true
	f.create(t, "job1")

	err := f.pipeline(Options{}).Run(context.Background(), "job1", "u")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageParsing {
		t.Fatalf("err = %v, want parsing StageError", err)
	}
	job, _ := f.jobs.Get("job1")
	if job.Status != models.JobStatusFailed || job.Result != nil {
		t.Errorf("job = %+v", job)
	}
}

func TestPipelineJobDeletedMidRun(t *testing.T) {
	f := newFixture(t)
	f.create(t, "job1")
	f.stt.during = func() { f.jobs.Delete("job1") }

	if err := f.pipeline(Options{}).Run(context.Background(), "job1", "u"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := f.jobs.Get("job1"); ok {
		t.Error("deleted job reappeared")
	}
	if len(f.archive.saved) != 0 {
		t.Errorf("deleted job archived: %v", f.archive.saved)
	}
	for _, e := range f.publisher.events {
		if e.Progress > 35 {
			t.Errorf("event published after deletion: %+v", e)
		}
	}
}
