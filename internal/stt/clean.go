package stt

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	musicMarks     = regexp.MustCompile(`[♪♫🎵🎶]+`)
	musicTags      = regexp.MustCompile(`(?i)\[(음악|배경음악|bgm|music)\]`)
	subscribeNoise = regexp.MustCompile(`구독\s*(과|,)?\s*좋아요(\s*알림)?`)
	unitSpacing    = regexp.MustCompile(`(\d+)\s+(스푼|큰술|작은술|분|초|컵)`)
	gramWord       = regexp.MustCompile(`(\d+)\s*그램`)
	metricSpacing  = regexp.MustCompile(`(?i)(\d+)\s+(g|ml|kg)\b`)
	repeatedDots   = regexp.MustCompile(`\.{2,}`)
	spaceBeforeP   = regexp.MustCompile(`\s+([,.!?])`)
)

// CleanText removes recognition noise (music cues, channel boilerplate, stutters)
// and normalizes spacing around quantities.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = musicMarks.ReplaceAllString(text, "")
	text = musicTags.ReplaceAllString(text, "")
	text = subscribeNoise.ReplaceAllString(text, "")
	text = unitSpacing.ReplaceAllString(text, "$1$2")
	text = gramWord.ReplaceAllString(text, "${1}g")
	text = metricSpacing.ReplaceAllString(text, "$1$2")
	text = collapseRepeats(strings.Fields(text))
	text = repeatedDots.ReplaceAllString(text, ".")
	text = spaceBeforeP.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// collapseRepeats joins words, reducing runs of three or more identical words to one.
func collapseRepeats(words []string) string {
	var out []string
	for i := 0; i < len(words); {
		j := i + 1
		for j < len(words) && words[j] == words[i] {
			j++
		}
		if j-i >= 3 {
			out = append(out, words[i])
		} else {
			out = append(out, words[i:j]...)
		}
		i = j
	}
	return strings.Join(out, " ")
}

// sentence-final characters; Korean endings 요/다/죠 close most spoken sentences
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '요', '다', '죠':
		return true
	}
	return false
}

// SplitSentences splits text after a sentence-final character followed by whitespace.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
