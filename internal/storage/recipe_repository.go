package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipeshorts/internal/models"
)

// ArchivedRecipe is a completed extraction stored for later lookup.
type ArchivedRecipe struct {
	VideoID          string             `json:"video_id"`
	JobID            string             `json:"job_id"`
	URL              string             `json:"url"`
	Title            string             `json:"title"`
	Degraded         bool               `json:"degraded"`
	TranscriptSource string             `json:"transcript_source"`
	Recipe           *models.Recipe     `json:"recipe,omitempty"`
	Transcript       *models.Transcript `json:"transcript,omitempty"`
	VideoInfo        *models.VideoInfo  `json:"video_info,omitempty"`
	Timing           models.Timing      `json:"timing"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// RecipeRepository はレシピアーカイブのデータアクセス層
type RecipeRepository struct {
	db *DB
}

// NewRecipeRepository は新しいRecipeRepositoryを作成
func NewRecipeRepository(db *DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Save stores the result of a completed job, replacing any earlier result for the same video.
func (r *RecipeRepository) Save(ctx context.Context, jobID, url string, result *models.Result) error {
	if result == nil || result.Recipe == nil {
		return errors.New("result has no recipe")
	}
	videoID := ""
	if result.VideoInfo != nil {
		videoID = result.VideoInfo.VideoID
	}
	if videoID == "" {
		return errors.New("result has no video id")
	}

	recipeJSON, err := json.Marshal(result.Recipe)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	transcriptJSON, err := json.Marshal(result.Transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	videoJSON, err := json.Marshal(result.VideoInfo)
	if err != nil {
		return fmt.Errorf("failed to encode video info: %w", err)
	}
	timingJSON, err := json.Marshal(result.Timing)
	if err != nil {
		return fmt.Errorf("failed to encode timing: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (video_id, job_id, url, title, degraded, transcript_source,
			recipe_json, transcript_json, video_info_json, timing_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			job_id = excluded.job_id,
			url = excluded.url,
			title = excluded.title,
			degraded = excluded.degraded,
			transcript_source = excluded.transcript_source,
			recipe_json = excluded.recipe_json,
			transcript_json = excluded.transcript_json,
			video_info_json = excluded.video_info_json,
			timing_json = excluded.timing_json,
			updated_at = excluded.updated_at`,
		videoID, jobID, url, result.Recipe.Title, result.Recipe.IsDegraded(), result.Timing.TranscriptSource,
		string(recipeJSON), string(transcriptJSON), string(videoJSON), string(timingJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// GetByVideoID は動画IDでレシピを取得（存在しなければ nil）
func (r *RecipeRepository) GetByVideoID(ctx context.Context, videoID string) (*ArchivedRecipe, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT video_id, job_id, url, title, degraded, transcript_source,
			recipe_json, transcript_json, video_info_json, timing_json, created_at, updated_at
		FROM recipes WHERE video_id = ?`, videoID)

	var (
		a                                         ArchivedRecipe
		recipeJSON, transcriptJSON, videoJSON, tj string
	)
	err := row.Scan(&a.VideoID, &a.JobID, &a.URL, &a.Title, &a.Degraded, &a.TranscriptSource,
		&recipeJSON, &transcriptJSON, &videoJSON, &tj, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recipeJSON), &a.Recipe); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	if err := json.Unmarshal([]byte(transcriptJSON), &a.Transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(videoJSON), &a.VideoInfo); err != nil {
		return nil, fmt.Errorf("failed to decode video info: %w", err)
	}
	if err := json.Unmarshal([]byte(tj), &a.Timing); err != nil {
		return nil, fmt.Errorf("failed to decode timing: %w", err)
	}
	return &a, nil
}

// ListRecent は最近のレシピ一覧を取得（本文は含まない）
func (r *RecipeRepository) ListRecent(ctx context.Context, limit int) ([]ArchivedRecipe, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT video_id, job_id, url, title, degraded, transcript_source, created_at, updated_at
		FROM recipes ORDER BY updated_at DESC, video_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []ArchivedRecipe
	for rows.Next() {
		var a ArchivedRecipe
		if err := rows.Scan(&a.VideoID, &a.JobID, &a.URL, &a.Title, &a.Degraded, &a.TranscriptSource,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Delete はレシピを削除
func (r *RecipeRepository) Delete(ctx context.Context, videoID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE video_id = ?`, videoID)
	return err
}

// Count はアーカイブ件数を返す
func (r *RecipeRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n)
	return n, err
}
