package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// ErrInvalidURL is returned for URLs that do not point at a YouTube video.
var ErrInvalidURL = errors.New("invalid YouTube URL")

var allowedHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// ParseVideoURL validates a watch, shorts, embed or youtu.be URL and returns its video id.
func ParseVideoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if !allowedHosts[strings.ToLower(u.Hostname())] {
		return "", fmt.Errorf("%w: unsupported host %q", ErrInvalidURL, u.Hostname())
	}

	var candidate string
	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be"):
		candidate = strings.Trim(u.Path, "/")
	case u.Query().Get("v") != "":
		candidate = u.Query().Get("v")
	default:
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			candidate = parts[1]
		}
	}
	if candidate == "" {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidURL, raw)
	}

	id, err := ytdl.ExtractVideoID(candidate)
	if err != nil || id != candidate || len(id) != 11 {
		return "", fmt.Errorf("%w: malformed video id %q", ErrInvalidURL, candidate)
	}
	return id, nil
}
