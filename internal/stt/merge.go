package stt

import (
	"math"
	"strings"
	"unicode"

	"recipeshorts/internal/models"
)

// snapWindow is how far (in runes) a proportional cut may move to land on a sentence end.
const snapWindow = 20

// MergeSegments puts accurate text onto the timing segments of a second transcription.
//
// With matching sentence counts each sentence replaces one segment's text. Otherwise the
// text is distributed over the segments in proportion to their original text length, and
// if the timing segments carry no text at all the sentences are spread evenly over duration.
func MergeSegments(text string, timing []models.Segment, duration float64) []models.Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(timing) == 0 {
		return []models.Segment{{Start: 0, End: round2(duration), Text: text}}
	}

	sentences := SplitSentences(text)
	if len(sentences) == len(timing) {
		out := make([]models.Segment, len(timing))
		for i, seg := range timing {
			out[i] = models.Segment{Start: round2(seg.Start), End: round2(seg.End), Text: sentences[i]}
		}
		return out
	}

	totalLen := 0
	for _, seg := range timing {
		totalLen += len([]rune(strings.TrimSpace(seg.Text)))
	}
	if totalLen == 0 {
		if duration <= 0 {
			duration = timing[len(timing)-1].End
		}
		return SplitEvenly(sentences, duration)
	}

	full := []rune(strings.Join(sentences, " "))
	var out []models.Segment
	idx := 0
	for _, seg := range timing {
		ratio := float64(len([]rune(strings.TrimSpace(seg.Text)))) / float64(totalLen)
		end := min(idx+int(float64(len(full))*ratio), len(full))
		if end < len(full) {
			end = snapToSentenceEnd(full, idx, end)
		}
		part := strings.TrimSpace(string(full[idx:end]))
		idx = end
		if part != "" {
			out = append(out, models.Segment{Start: round2(seg.Start), End: round2(seg.End), Text: part})
		}
	}
	if rest := strings.TrimSpace(string(full[idx:])); rest != "" {
		if len(out) == 0 {
			last := timing[len(timing)-1]
			return []models.Segment{{Start: round2(timing[0].Start), End: round2(last.End), Text: rest}}
		}
		out[len(out)-1].Text += " " + rest
	}
	return out
}

// snapToSentenceEnd moves cut to the closest sentence boundary within snapWindow, never before from.
func snapToSentenceEnd(full []rune, from, cut int) int {
	best, bestDist := cut, snapWindow+1
	lo := max(from, cut-snapWindow)
	hi := min(len(full)-1, cut+snapWindow)
	for i := lo; i < hi; i++ {
		if !isSentenceEnd(full[i]) || !unicode.IsSpace(full[i+1]) {
			continue
		}
		d := i + 2 - cut
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i+2, d
		}
	}
	return min(best, len(full))
}

// SplitEvenly assigns each sentence an equal share of duration.
func SplitEvenly(sentences []string, duration float64) []models.Segment {
	if len(sentences) == 0 {
		return nil
	}
	per := duration / float64(len(sentences))
	out := make([]models.Segment, len(sentences))
	for i, s := range sentences {
		out[i] = models.Segment{
			Start: round2(float64(i) * per),
			End:   round2(float64(i+1) * per),
			Text:  s,
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
