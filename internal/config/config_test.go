package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.Jobs.MaxJobs != 100 {
		t.Errorf("MaxJobs = %d, want 100", cfg.Jobs.MaxJobs)
	}
	if cfg.Jobs.Expiry != 24*time.Hour {
		t.Errorf("Expiry = %v, want 24h", cfg.Jobs.Expiry)
	}
	if cfg.Jobs.PreferSubtitles {
		t.Error("PreferSubtitles should default to false")
	}
	if cfg.Chat.SessionExpiry != time.Hour {
		t.Errorf("SessionExpiry = %v, want 1h", cfg.Chat.SessionExpiry)
	}
	if cfg.Chat.MaxImageBytes != 10*1024*1024 {
		t.Errorf("MaxImageBytes = %d", cfg.Chat.MaxImageBytes)
	}
	if cfg.Chat.HistoryWindow != 6 || cfg.Chat.MaxRetries != 2 {
		t.Errorf("chat window/retries = %d/%d", cfg.Chat.HistoryWindow, cfg.Chat.MaxRetries)
	}
	if cfg.OpenAI.ChatTimeout != 120*time.Second || cfg.OpenAI.TranscribeTimeout != 300*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.OpenAI.ChatTimeout, cfg.OpenAI.TranscribeTimeout)
	}
	if cfg.DBPath != filepath.Join("data", "recipes.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_JOBS", "3")
	t.Setenv("PREFER_SUBTITLES", "true")
	t.Setenv("SESSION_EXPIRY", "60")
	t.Setenv("STT_PROVIDER", "LOCAL")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Jobs.MaxJobs != 3 {
		t.Errorf("MaxJobs = %d", cfg.Jobs.MaxJobs)
	}
	if !cfg.Jobs.PreferSubtitles {
		t.Error("PreferSubtitles not applied")
	}
	if cfg.Chat.SessionExpiry != time.Minute {
		t.Errorf("SessionExpiry = %v", cfg.Chat.SessionExpiry)
	}
	if cfg.STT.Provider != STTProviderLocal {
		t.Errorf("Provider = %q", cfg.STT.Provider)
	}
	if cfg.OpenAI.BaseURL != "http://localhost:1234" {
		t.Errorf("BaseURL = %q", cfg.OpenAI.BaseURL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("CHAT_HISTORY_WINDOW=4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set
	os.Unsetenv("CHAT_HISTORY_WINDOW")
	t.Cleanup(func() { os.Unsetenv("CHAT_HISTORY_WINDOW") })

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.HistoryWindow != 4 {
		t.Errorf("HistoryWindow = %d, want 4", cfg.Chat.HistoryWindow)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("MAX_JOBS", "0")
	t.Setenv("STT_PROVIDER", "carrier-pigeon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"MAX_JOBS", "STT_PROVIDER"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
