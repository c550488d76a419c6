package youtube

import (
	"fmt"
	"strings"

	"recipeshorts/internal/models"
)

// Cue is one raw caption line before cleanup.
type Cue struct {
	Start float64 // 秒
	End   float64
	Text  string
}

// cuesToTranscript drops noise and consecutive duplicates; nil when nothing is left.
func cuesToTranscript(cues []Cue) *models.Transcript {
	segments := make([]models.Segment, 0, len(cues))
	prev := ""
	for _, cue := range cues {
		text := cleanCue(cue.Text)
		if text == "" || isNoiseCue(text) || text == prev {
			continue
		}
		prev = text
		segments = append(segments, models.Segment{
			Start: round2(cue.Start),
			End:   round2(cue.End),
			Text:  text,
		})
	}
	if len(segments) == 0 {
		return nil
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return &models.Transcript{
		FullText: strings.Join(texts, " "),
		Segments: segments,
		Duration: segments[len(segments)-1].End,
	}
}

// FormatAsVTT は字幕をWebVTT形式で出力
func FormatAsVTT(segments []models.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, formatVTTTime(seg.Start), formatVTTTime(seg.End), seg.Text)
	}
	return strings.TrimSpace(sb.String())
}

// formatVTTTime はWebVTT形式のタイムスタンプを生成 (HH:MM:SS.mmm)
func formatVTTTime(sec float64) string {
	ms := int64(sec*1000 + 0.5)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
