package storage

import (
	"context"
	"path/filepath"
	"testing"

	"recipeshorts/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult(videoID, title string) *models.Result {
	return &models.Result{
		Recipe: &models.Recipe{
			Title: title,
			Steps: []models.Step{{StepNumber: 1, Instruction: "물을 끓인다", Timestamp: 3.5}},
		},
		VideoInfo:  &models.VideoInfo{VideoID: videoID, Title: title, Duration: 42},
		Transcript: &models.Transcript{FullText: "물을 끓인다", Source: "openai_hybrid"},
		Timing:     models.Timing{Download: 1.2, Total: 10.5, TranscriptSource: "openai_hybrid"},
	}
}

func TestRecipeRepositorySaveAndGet(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, "job-1", "https://youtu.be/abc", sampleResult("abc", "라면")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByVideoID(ctx, "abc")
	if err != nil {
		t.Fatalf("GetByVideoID: %v", err)
	}
	if got == nil {
		t.Fatal("recipe not found")
	}
	if got.Title != "라면" || got.JobID != "job-1" || got.TranscriptSource != "openai_hybrid" {
		t.Errorf("got %+v", got)
	}
	if got.Recipe == nil || len(got.Recipe.Steps) != 1 || got.Recipe.Steps[0].Timestamp != 3.5 {
		t.Errorf("recipe = %+v", got.Recipe)
	}
	if got.VideoInfo == nil || got.VideoInfo.Duration != 42 {
		t.Errorf("video info = %+v", got.VideoInfo)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestRecipeRepositoryUpsert(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))
	ctx := context.Background()

	repo.Save(ctx, "job-1", "u", sampleResult("abc", "first"))
	degraded := sampleResult("abc", "second")
	degraded.Recipe.Error = "parse failed"
	if err := repo.Save(ctx, "job-2", "u", degraded); err != nil {
		t.Fatal(err)
	}

	n, _ := repo.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	got, _ := repo.GetByVideoID(ctx, "abc")
	if got.Title != "second" || got.JobID != "job-2" || !got.Degraded {
		t.Errorf("got %+v", got)
	}
}

func TestRecipeRepositoryMissing(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))
	got, err := repo.GetByVideoID(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestRecipeRepositoryRejectsIncompleteResult(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))
	ctx := context.Background()
	if err := repo.Save(ctx, "j", "u", &models.Result{}); err == nil {
		t.Error("expected error for result without recipe")
	}
	noVideo := sampleResult("", "x")
	if err := repo.Save(ctx, "j", "u", noVideo); err == nil {
		t.Error("expected error for result without video id")
	}
}

func TestRecipeRepositoryListAndDelete(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Save(ctx, "job-"+id, "u", sampleResult(id, "title "+id)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Recipe != nil {
		t.Error("list entries should not carry the recipe body")
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}
