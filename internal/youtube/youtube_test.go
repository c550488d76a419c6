package youtube

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	ytdl "github.com/kkdai/youtube/v2"
)

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/shorts/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10  ", "dQw4w9WgXcQ", false},
		{"", "", true},
		{"not a url", "", true},
		{"ftp://youtube.com/watch?v=dQw4w9WgXcQ", "", true},
		{"https://vimeo.com/123456789", "", true},
		{"https://www.youtube.com/", "", true},
		{"https://www.youtube.com/watch?v=short", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVideoURL(tt.url)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ParseVideoURL(%q) err = %v, want ErrInvalidURL", tt.url, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseVideoURL(%q) = %q, %v; want %q", tt.url, got, err, tt.want)
		}
	}
}

func TestSelectCaption(t *testing.T) {
	tracks := []CaptionTrack{
		{LanguageCode: "fr"},
		{LanguageCode: "ko", Kind: "asr"},
		{LanguageCode: "en-US"},
	}
	got := selectCaption(tracks, SubtitleLanguages)
	if got == nil || got.LanguageCode != "en-US" {
		t.Fatalf("manual en should beat auto ko, got %+v", got)
	}

	autoOnly := []CaptionTrack{{LanguageCode: "de", Kind: "asr"}, {LanguageCode: "ja", Kind: "asr"}}
	if got := selectCaption(autoOnly, SubtitleLanguages); got.LanguageCode != "ja" {
		t.Errorf("got %s, want ja", got.LanguageCode)
	}

	other := []CaptionTrack{{LanguageCode: "de", Kind: "asr"}, {LanguageCode: "fr"}}
	if got := selectCaption(other, SubtitleLanguages); got.LanguageCode != "fr" {
		t.Errorf("got %s, want manual fr", got.LanguageCode)
	}

	if selectCaption(nil, SubtitleLanguages) != nil {
		t.Error("expected nil for no tracks")
	}
}

func TestSelectFormats(t *testing.T) {
	formats := []ytdl.Format{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500_000, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Bitrate: 4_000_000},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160_000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128_000, AudioChannels: 2},
	}
	if f := selectMuxedFormat(formats); f == nil || f.ItagNo != 18 {
		t.Errorf("muxed = %+v, want itag 18", f)
	}
	f := selectAudioFormat(formats)
	if f == nil || f.ItagNo != 140 {
		t.Fatalf("audio = %+v, want itag 140 (m4a preferred)", f)
	}
	if ext := extensionFor(f.MimeType); ext != ".m4a" {
		t.Errorf("ext = %s", ext)
	}
	if selectAudioFormat(formats[:2]) != nil {
		t.Error("expected no audio-only format")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subs.xml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubtitleParserFormat3(t *testing.T) {
	path := writeFile(t, `<?xml version="1.0" encoding="utf-8" ?>
<timedtext format="3"><body>
<p t="0" d="1500">[음악]</p>
<p t="1500" d="2000"><s>양파를</s><s> 썰어주세요</s></p>
<p t="3500" d="1000">양파를 썰어주세요</p>
<p t="4500" d="2500">간장 &amp;amp; 설탕</p>
<p t="7000" d="500">♪♪</p>
</body></timedtext>`)

	tr, err := SubtitleParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr == nil || len(tr.Segments) != 2 {
		t.Fatalf("segments = %+v", tr)
	}
	if tr.Segments[0].Start != 1.5 || tr.Segments[0].End != 3.5 {
		t.Errorf("timing = %+v", tr.Segments[0])
	}
	if tr.FullText != "양파를 썰어주세요 간장 & 설탕" {
		t.Errorf("full text = %q", tr.FullText)
	}
}

func TestSubtitleParserLegacy(t *testing.T) {
	path := writeFile(t, `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.25">add the &amp;#39;garlic&amp;#39;</text>
<text start="2.75" dur="1">[Music]</text>
</transcript>`)

	tr, err := SubtitleParser{}.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr == nil || len(tr.Segments) != 1 {
		t.Fatalf("transcript = %+v", tr)
	}
	if tr.Segments[0].Text != "add the 'garlic'" || tr.Segments[0].End != 2.75 {
		t.Errorf("segment = %+v", tr.Segments[0])
	}
}

func TestSubtitleParserNoCues(t *testing.T) {
	path := writeFile(t, `<timedtext><body><p t="0" d="10">[Music]</p></body></timedtext>`)
	tr, err := SubtitleParser{}.Parse(path)
	if err != nil || tr != nil {
		t.Fatalf("got %+v, %v; want nil, nil", tr, err)
	}

	if _, err := (SubtitleParser{}).Parse(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatAsVTT(t *testing.T) {
	tr := cuesToTranscript([]Cue{{Start: 61.5, End: 3723.25, Text: "hi"}})
	got := FormatAsVTT(tr.Segments)
	want := "WEBVTT\n\n1\n00:01:01.500 --> 01:02:03.250\nhi"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
