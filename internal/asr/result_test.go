package asr

import (
	"strings"
	"testing"
	"time"

	"recipeshorts/internal/models"
)

func TestGroupTokensSplitsOnPause(t *testing.T) {
	tokens := []Token{
		{Text: "▁물을", StartTime: 0.0, Duration: 0.4},
		{Text: "▁끓", StartTime: 0.4, Duration: 0.2},
		{Text: "여요", StartTime: 0.6, Duration: 0.3},
		{Text: "▁면을", StartTime: 2.0, Duration: 0.4},
		{Text: "▁넣어요", StartTime: 2.4, Duration: 0.5},
	}
	got := GroupTokens(tokens, 700*time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Text != "물을 끓여요" || got[0].Start != 0 || got[0].End != 0.9 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Text != "면을 넣어요" || got[1].Start != 2 || got[1].End != 2.9 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestGroupTokensSplitsOnSentenceEnd(t *testing.T) {
	tokens := []Token{
		{Text: "▁Boil", StartTime: 0},
		{Text: "▁water.", StartTime: 0.3},
		{Text: "▁Add", StartTime: 0.6},
		{Text: "▁salt", StartTime: 0.9, Duration: 0.3},
	}
	got := GroupTokens(tokens, time.Second)
	if len(got) != 2 || got[0].Text != "Boil water." || got[0].End != 0.6 || got[1].Text != "Add salt" {
		t.Errorf("got %+v", got)
	}
}

func TestGroupTokensEmpty(t *testing.T) {
	if got := GroupTokens(nil, time.Second); len(got) != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestFormatAsSRT(t *testing.T) {
	srt := FormatAsSRT([]models.Segment{
		{Start: 0, End: 1.5, Text: "하나"},
		{Start: 61.25, End: 3725.5, Text: "둘"},
	})
	want := "1\n00:00:00,000 --> 00:00:01,500\n하나\n\n2\n00:01:01,250 --> 01:02:05,500\n둘\n"
	if srt != want {
		t.Errorf("got\n%q\nwant\n%q", srt, want)
	}
}

func TestWavPathFor(t *testing.T) {
	if got := WavPathFor("/data/job/audio.m4a"); !strings.HasSuffix(got, "/data/job/audio_16k.wav") {
		t.Errorf("got %q", got)
	}
}

func TestNewConfigMissingModel(t *testing.T) {
	if _, err := NewConfig(t.TempDir()); err == nil {
		t.Error("expected error for empty model directory")
	}
}
