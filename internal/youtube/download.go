package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"recipeshorts/internal/models"
)

const videoFileName = "video.mp4"

// Download は動画と音声ストリームをdirに保存する
//
// The best muxed mp4 (video with an audio track) is saved as video.mp4 and the
// best audio-only stream as audio.m4a (or audio.webm). When no audio-only stream
// exists the muxed file doubles as the audio source.
func (c *Client) Download(ctx context.Context, url, dir string) (*models.VideoInfo, error) {
	info, err := c.GetVideo(ctx, url)
	if err != nil {
		return nil, err
	}
	if info.Duration > c.maxDuration {
		c.log.Warn("video longer than recommended",
			"video_id", info.ID,
			"duration", info.Duration.Seconds(),
			"limit", c.maxDuration.Seconds(),
		)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	out := &models.VideoInfo{
		VideoID:  info.ID,
		Title:    info.Title,
		Author:   info.Author,
		Duration: info.Duration.Seconds(),
		URL:      url,
	}

	formats := info.video.Formats
	if f := selectMuxedFormat(formats); f != nil {
		path := filepath.Join(dir, videoFileName)
		if err := c.saveStream(ctx, info.video, f, path); err != nil {
			return nil, err
		}
		out.VideoPath = path
	}
	if f := selectAudioFormat(formats); f != nil {
		path := filepath.Join(dir, "audio"+extensionFor(f.MimeType))
		if err := c.saveStream(ctx, info.video, f, path); err != nil {
			return nil, err
		}
		out.AudioPath = path
	} else {
		out.AudioPath = out.VideoPath
	}

	if out.AudioPath == "" {
		return nil, fmt.Errorf("%w: no downloadable audio for %s", ErrDownload, info.ID)
	}

	c.log.Info("video downloaded", "video_id", out.VideoID, "title", out.Title, "audio", out.AudioPath)
	return out, nil
}

func (c *Client) saveStream(ctx context.Context, video *ytdl.Video, format *ytdl.Format, path string) error {
	stream, size, err := c.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("%w: failed to get stream itag=%d: %w", ErrDownload, format.ItagNo, err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create file: %w", ErrDownload, err)
	}

	written, err := copyWithContext(ctx, file, stream)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path) // 失敗時はファイルを削除
		return fmt.Errorf("%w: failed to download: %w", ErrDownload, err)
	}
	c.log.Debug("stream saved", "path", path, "bytes", written, "expected", size)
	return nil
}

// selectMuxedFormat picks the highest bitrate mp4 that carries audio.
func selectMuxedFormat(formats []ytdl.Format) *ytdl.Format {
	var best *ytdl.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/mp4") || f.AudioChannels == 0 {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

// selectAudioFormat picks an audio-only stream, m4a before webm, then by bitrate.
func selectAudioFormat(formats []ytdl.Format) *ytdl.Format {
	var candidates []*ytdl.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		// 吹き替えトラックは除外
		if f.AudioTrack != nil && !f.AudioTrack.AudioIsDefault {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		mi, mj := isMP4(candidates[i].MimeType), isMP4(candidates[j].MimeType)
		if mi != mj {
			return mi
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return candidates[0]
}

func isMP4(mime string) bool {
	return strings.Contains(mime, "mp4")
}

// extensionFor はMIMEタイプから拡張子を返す
func extensionFor(mime string) string {
	switch {
	case isMP4(mime):
		return ".m4a"
	case strings.Contains(mime, "webm"):
		return ".webm"
	}
	return ".audio"
}

// copyWithContext copies src to dst and stops early when ctx is cancelled.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, err := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
