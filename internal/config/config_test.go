package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Typing.IntervalMS != 40 {
		t.Errorf("expected interval_ms=40, got %d", cfg.Typing.IntervalMS)
	}
	if cfg.Scroll.Threshold != 0.1 {
		t.Errorf("expected threshold=0.1, got %v", cfg.Scroll.Threshold)
	}
	if cfg.Scroll.QuietMS != 300 {
		t.Errorf("expected quiet_ms=300, got %d", cfg.Scroll.QuietMS)
	}
	if cfg.Scroll.DebounceMS != 100 {
		t.Errorf("expected debounce_ms=100, got %d", cfg.Scroll.DebounceMS)
	}
	if got := cfg.AutoScrollMaxWait(); got != 400*time.Millisecond {
		t.Errorf("expected max wait 400ms, got %v", got)
	}
	if cfg.Server.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("expected default model gemini-2.0-flash, got %s", cfg.Server.DefaultModel)
	}
	if _, ok := cfg.Providers["openai"]; !ok {
		t.Error("expected openai provider in defaults")
	}
	if _, ok := cfg.Models["gemini-2.5-pro"]; !ok {
		t.Error("expected gemini-2.5-pro in model catalog")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[client]
endpoint = "http://chat.internal:9000"

[typing]
interval_ms = 15

[scroll]
threshold = 0.5
debounce_ms = 50

[providers.openai]
endpoint = "http://custom:11434/v1"
model = "llama3"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Client.Endpoint != "http://chat.internal:9000" {
		t.Errorf("expected custom endpoint, got %s", cfg.Client.Endpoint)
	}
	if got := cfg.TypingInterval(); got != 15*time.Millisecond {
		t.Errorf("expected typing interval 15ms, got %v", got)
	}
	if cfg.Scroll.Threshold != 0.5 {
		t.Errorf("expected threshold=0.5, got %v", cfg.Scroll.Threshold)
	}
	if got := cfg.AutoScrollDebounce(); got != 50*time.Millisecond {
		t.Errorf("expected debounce 50ms, got %v", got)
	}
	// Unset keys keep their defaults
	if got := cfg.ScrollQuietWindow(); got != 300*time.Millisecond {
		t.Errorf("expected quiet window 300ms, got %v", got)
	}
	if cfg.Providers["openai"].Model != "llama3" {
		t.Errorf("expected custom openai model, got %s", cfg.Providers["openai"].Model)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[typing\ninterval_ms = "), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TYPECAST_ENDPOINT", "http://env.example:8000")
	t.Setenv("TYPECAST_TYPING_INTERVAL_MS", "25")
	t.Setenv("TYPECAST_SERVER_PROVIDER", "mock")
	t.Setenv("TYPECAST_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("TYPECAST_OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Client.Endpoint != "http://env.example:8000" {
		t.Errorf("expected env override endpoint, got %s", cfg.Client.Endpoint)
	}
	if cfg.Typing.IntervalMS != 25 {
		t.Errorf("expected env override interval_ms=25, got %d", cfg.Typing.IntervalMS)
	}
	if cfg.Server.Provider != "mock" {
		t.Errorf("expected env override provider=mock, got %s", cfg.Server.Provider)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("expected two trimmed origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Providers["openai"].Model != "gpt-4o-mini" {
		t.Errorf("expected env override openai model, got %s", cfg.Providers["openai"].Model)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load() should not error for non-existent file: %v", err)
	}

	if cfg.Typing.IntervalMS != 40 {
		t.Errorf("expected interval_ms=40, got %d", cfg.Typing.IntervalMS)
	}
}

func TestNonPositiveDurationsFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Typing.IntervalMS = 0
	cfg.Scroll.DebounceMS = -5

	if got := cfg.TypingInterval(); got != 40*time.Millisecond {
		t.Errorf("expected fallback 40ms, got %v", got)
	}
	if got := cfg.AutoScrollDebounce(); got != 100*time.Millisecond {
		t.Errorf("expected fallback 100ms, got %v", got)
	}
}

func TestCredentials(t *testing.T) {
	creds := &Credentials{
		Providers: make(map[string]ProviderCredentials),
	}

	if key := creds.GetAPIKey("openai"); key != "" {
		t.Errorf("expected empty key, got %s", key)
	}

	creds.SetAPIKey("openai", "test-api-key")
	if key := creds.GetAPIKey("openai"); key != "test-api-key" {
		t.Errorf("expected test-api-key, got %s", key)
	}
}

func TestCredentialsSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TYPECAST_OPENAI_API_KEY", "")

	creds := &Credentials{}
	creds.SetAPIKey("openai", "secret-key-123")

	if err := SaveCredentials(creds); err != nil {
		t.Fatalf("SaveCredentials() error: %v", err)
	}

	path := filepath.Join(tmpDir, ".typecast", "credentials.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credentials file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
	}

	loaded, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
	if key := loaded.GetAPIKey("openai"); key != "secret-key-123" {
		t.Errorf("expected secret-key-123, got %s", key)
	}
}

func TestLoadCredentialsEnvOverlay(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("TYPECAST_OPENAI_API_KEY", "")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() should not error for non-existent file: %v", err)
	}
	if creds == nil {
		t.Fatal("expected non-nil credentials")
	}
	if key := creds.GetAPIKey("gemini"); key != "from-env" {
		t.Errorf("expected gemini key from env, got %q", key)
	}
	if key := creds.GetAPIKey("openai"); key != "" {
		t.Errorf("expected no openai key, got %q", key)
	}
}
