package youtube

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"recipeshorts/internal/models"
)

// SubtitleLanguages is the preferred subtitle language order.
var SubtitleLanguages = []string{"ko", "en", "ja"}

// YouTube字幕のXML構造 (format 3)
type xmlTimedText struct {
	XMLName    xml.Name     `xml:"timedtext"`
	Paragraphs []xmlTimedP `xml:"body>p"`
}

type xmlTimedP struct {
	Start    int64        `xml:"t,attr"` // ミリ秒
	Duration int64        `xml:"d,attr"` // ミリ秒
	Text     string       `xml:",chardata"`
	Segments []xmlSegment `xml:"s"`
}

type xmlSegment struct {
	Text string `xml:",chardata"`
}

// 旧形式 <transcript><text start dur>
type xmlTranscript struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []xmlText `xml:"text"`
}

type xmlText struct {
	Start    float64 `xml:"start,attr"` // 秒
	Duration float64 `xml:"dur,attr"`   // 秒
	Text     string  `xml:",chardata"`
}

// selectCaption picks a manual track by language priority, then an
// auto-generated one, then whatever exists.
func selectCaption(tracks []CaptionTrack, languages []string) *CaptionTrack {
	if len(tracks) == 0 {
		return nil
	}
	for _, auto := range []bool{false, true} {
		for _, lang := range languages {
			for i := range tracks {
				t := &tracks[i]
				if t.IsAutoGenerated() == auto && matchesLanguage(t.LanguageCode, lang) {
					return t
				}
			}
		}
	}
	for i := range tracks {
		if !tracks[i].IsAutoGenerated() {
			return &tracks[i]
		}
	}
	return &tracks[0]
}

// matchesLanguage treats regional variants ("en-US") as the base language.
func matchesLanguage(code, lang string) bool {
	code = strings.ToLower(code)
	return code == lang || strings.HasPrefix(code, lang+"-")
}

// FetchSubtitles は優先言語の字幕をdirに保存する。字幕がなければnilを返す
func (c *Client) FetchSubtitles(ctx context.Context, url, dir string) (*models.SubtitleInfo, error) {
	info, err := c.GetVideo(ctx, url)
	if err != nil {
		return nil, err
	}
	track := selectCaption(info.Captions, SubtitleLanguages)
	if track == nil {
		c.log.Info("no subtitles available", "video_id", info.ID)
		return nil, nil
	}

	body, err := c.fetchCaption(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.xml", info.ID, track.LanguageCode))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write subtitles: %w", err)
	}

	c.log.Info("subtitles downloaded",
		"video_id", info.ID,
		"language", track.LanguageCode,
		"auto", track.IsAutoGenerated(),
	)
	return &models.SubtitleInfo{
		Path:            path,
		Language:        track.LanguageCode,
		IsAutoGenerated: track.IsAutoGenerated(),
	}, nil
}

func (c *Client) fetchCaption(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// SubtitleParser converts a saved timedtext file into a transcript.
type SubtitleParser struct{}

// Parse returns nil without error when the file has no usable cues.
func (SubtitleParser) Parse(path string) (*models.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitles: %w", err)
	}
	cues, err := parseTimedText(data)
	if err != nil {
		return nil, err
	}
	return cuesToTranscript(cues), nil
}

func parseTimedText(data []byte) ([]Cue, error) {
	if bytes.Contains(data, []byte("<timedtext")) {
		var doc xmlTimedText
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("XML parse failed: %w", err)
		}
		cues := make([]Cue, 0, len(doc.Paragraphs))
		for _, p := range doc.Paragraphs {
			text := p.Text
			if len(p.Segments) > 0 {
				var sb strings.Builder
				for _, seg := range p.Segments {
					sb.WriteString(seg.Text)
				}
				text = sb.String()
			}
			cues = append(cues, Cue{
				Start: float64(p.Start) / 1000,
				End:   float64(p.Start+p.Duration) / 1000,
				Text:  text,
			})
		}
		return cues, nil
	}

	var doc xmlTranscript
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("XML parse failed: %w", err)
	}
	cues := make([]Cue, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		cues = append(cues, Cue{Start: t.Start, End: t.Start + t.Duration, Text: t.Text})
	}
	return cues, nil
}

// cleanCue normalizes whitespace and undoes the second level of entity escaping
// YouTube applies to caption text.
func cleanCue(text string) string {
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// isNoiseCue matches sound annotations like "[Music]" or "♪♪".
func isNoiseCue(text string) bool {
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return true
	}
	return strings.Trim(text, "♪ ") == ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
