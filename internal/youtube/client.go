package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/retry"
)

// ErrDownload wraps every failure to fetch video metadata or media.
var ErrDownload = errors.New("video download failed")

// Client はYouTube API操作を抽象化するクライアント
type Client struct {
	client      ytdl.Client
	httpClient  *http.Client
	log         *logger.Logger
	maxDuration time.Duration
	retries     int
}

type Options struct {
	HTTPClient *http.Client
	// MaxDuration only triggers a warning; longer videos are still processed.
	MaxDuration time.Duration
	Retries     int
}

// NewClient は新しいYouTubeクライアントを作成
func NewClient(opts Options, log *logger.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 180 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		client:      ytdl.Client{HTTPClient: hc},
		httpClient:  hc,
		log:         log,
		maxDuration: opts.MaxDuration,
		retries:     opts.Retries,
	}
}

// VideoInfo は動画のメタ情報
type VideoInfo struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
	Captions []CaptionTrack
	video    *ytdl.Video
}

// CaptionTrack は字幕トラックの情報
type CaptionTrack struct {
	LanguageCode string
	Name         string
	BaseURL      string
	Kind         string // "asr" for auto-generated tracks
}

// IsAutoGenerated reports whether the track was produced by speech recognition.
func (t CaptionTrack) IsAutoGenerated() bool {
	return t.Kind == "asr"
}

// GetVideo は動画情報を取得（一時的なネットワークエラーは再試行）
func (c *Client) GetVideo(ctx context.Context, url string) (*VideoInfo, error) {
	policy := retry.Policy{
		MaxRetries:      c.retries,
		InitialInterval: time.Second,
		Retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnRetry: func(err error, attempt int, wait time.Duration) {
			c.log.Warn("video metadata fetch failed, retrying", "url", url, "attempt", attempt, "error", err)
		},
	}
	video, err := retry.Do(ctx, policy, func(ctx context.Context) (*ytdl.Video, error) {
		return c.client.GetVideoContext(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get video: %w", ErrDownload, err)
	}

	captions := make([]CaptionTrack, len(video.CaptionTracks))
	for i, track := range video.CaptionTracks {
		captions[i] = CaptionTrack{
			LanguageCode: track.LanguageCode,
			Name:         track.Name.SimpleText,
			BaseURL:      track.BaseURL,
			Kind:         track.Kind,
		}
	}

	return &VideoInfo{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
		Captions: captions,
		video:    video,
	}, nil
}
