package asr

import (
	"fmt"
	"math"
	"strings"
	"time"

	"recipeshorts/internal/models"
)

// Token is one decoded token with its position in the audio.
type Token struct {
	Text      string
	StartTime float32 // seconds
	Duration  float32 // seconds, 0 when the model does not report it
}

// wordBoundary marks the start of a word in BPE token output.
const wordBoundary = "▁"

// tokenText joins BPE tokens into readable text.
func tokenText(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(b.String(), wordBoundary, " ")), " ")
}

// GroupTokens builds segments from tokens, cutting at pauses longer than pause
// and after sentence-final tokens.
func GroupTokens(tokens []Token, pause time.Duration) []models.Segment {
	var (
		out     []models.Segment
		current []Token
	)
	flush := func(end float32) {
		if text := tokenText(current); text != "" {
			out = append(out, models.Segment{
				Start: round2(current[0].StartTime),
				End:   round2(end),
				Text:  text,
			})
		}
		current = nil
	}

	gap := float32(pause.Seconds())
	for i, tok := range tokens {
		if len(current) > 0 {
			prev := current[len(current)-1]
			if tok.StartTime-tokenEnd(prev, tok.StartTime) > gap {
				flush(tokenEnd(prev, tok.StartTime))
			}
		}
		current = append(current, tok)

		if endsSentence(tok.Text) {
			next := tok.StartTime + tok.Duration
			if i+1 < len(tokens) && tok.Duration == 0 {
				next = tokens[i+1].StartTime
			}
			flush(next)
		}
	}
	if len(current) > 0 {
		last := current[len(current)-1]
		flush(last.StartTime + last.Duration)
	}
	return out
}

// tokenEnd falls back to the next token's start when no duration was reported.
func tokenEnd(t Token, next float32) float32 {
	if t.Duration > 0 {
		return t.StartTime + t.Duration
	}
	return next
}

func endsSentence(text string) bool {
	text = strings.TrimSpace(strings.ReplaceAll(text, wordBoundary, ""))
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!")
}

func round2(v float32) float64 {
	return math.Round(float64(v)*100) / 100
}

// FormatAsSRT renders segments as SRT subtitles.
func FormatAsSRT(segments []models.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, formatSRTTime(seg.Start), formatSRTTime(seg.End), seg.Text)
	}
	return b.String()
}

// formatSRTTime converts seconds to SRT time format (HH:MM:SS,mmm)
func formatSRTTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
