package stt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrTranscription wraps every failure of a speech-to-text provider.
	ErrTranscription = errors.New("transcription failed")
	// ErrInvalidAudio is returned for missing, empty, oversized or unsupported audio files.
	ErrInvalidAudio = errors.New("invalid audio file")
)

// MaxAudioBytes is the upload limit of the transcription endpoint.
const MaxAudioBytes int64 = 25 * 1024 * 1024

// SupportedFormats lists extensions the transcription endpoint accepts.
var SupportedFormats = []string{".mp3", ".mp4", ".mpeg", ".mpga", ".m4a", ".wav", ".webm"}

// ValidateAudio checks that path is a non-empty supported audio file of at most maxBytes.
func ValidateAudio(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxAudioBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return invalidAudio("audio file not found: %s", path)
	}
	if info.IsDir() {
		return invalidAudio("audio path is a directory: %s", path)
	}
	if info.Size() == 0 {
		return invalidAudio("audio file is empty: %s", path)
	}
	if info.Size() > maxBytes {
		return invalidAudio("audio file too large: %.1fMB (max %.0fMB)",
			float64(info.Size())/1024/1024, float64(maxBytes)/1024/1024)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(SupportedFormats, ext) {
		return invalidAudio("unsupported audio format %q (supported: %s)", ext, strings.Join(SupportedFormats, ", "))
	}
	return nil
}

func invalidAudio(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrTranscription, ErrInvalidAudio, fmt.Sprintf(format, args...))
}
