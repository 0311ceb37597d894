// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xonecas/typecast/internal/constants"
)

// Config is the root configuration structure.
type Config struct {
	Client    ClientConfig              `toml:"client"`
	Typing    TypingConfig              `toml:"typing"`
	Scroll    ScrollConfig              `toml:"scroll"`
	Server    ServerConfig              `toml:"server"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Models    map[string]ModelConfig    `toml:"models"`
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	Endpoint         string `toml:"endpoint"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
}

// TypingConfig holds pacer settings.
type TypingConfig struct {
	IntervalMS int `toml:"interval_ms"`
}

// ScrollConfig holds auto-scroll policy settings.
type ScrollConfig struct {
	Threshold       float64 `toml:"threshold"`
	QuietMS         int     `toml:"quiet_ms"`
	DebounceMS      int     `toml:"debounce_ms"`
	MaxWaitMS       int     `toml:"max_wait_ms"`
	SentinelRows    int     `toml:"sentinel_rows"`
	SpringFrequency float64 `toml:"spring_frequency"`
	SpringDamping   float64 `toml:"spring_damping"`
}

// ServerConfig holds settings for the companion chat server.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	Provider       string   `toml:"provider"`
	DefaultModel   string   `toml:"default_model"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SystemPrompt   string   `toml:"system_prompt"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"`
	RateBurst   int     `toml:"rate_burst"`
}

// ModelConfig describes one entry of the server's model catalog.
type ModelConfig struct {
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	ContextWindow int    `toml:"context_window"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:         "http://localhost:8000",
			RequestTimeoutMS: int(constants.RequestTimeout / time.Millisecond),
		},
		Typing: TypingConfig{
			IntervalMS: int(constants.DefaultTypingInterval / time.Millisecond),
		},
		Scroll: ScrollConfig{
			Threshold:       constants.DefaultBottomThreshold,
			QuietMS:         int(constants.DefaultScrollQuietWindow / time.Millisecond),
			DebounceMS:      int(constants.DefaultAutoScrollDebounce / time.Millisecond),
			MaxWaitMS:       int(constants.DefaultAutoScrollMaxWait / time.Millisecond),
			SentinelRows:    constants.DefaultSentinelRows,
			SpringFrequency: constants.DefaultSpringFrequency,
			SpringDamping:   constants.DefaultSpringDamping,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			Provider:       "gemini",
			DefaultModel:   constants.FallbackModel,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Providers: map[string]ProviderConfig{
			"gemini": {
				Model:       constants.FallbackModel,
				Temperature: 0.7,
				RateLimit:   2.0,
				RateBurst:   3,
			},
			"openai": {
				Endpoint:    "https://generativelanguage.googleapis.com/v1beta/openai/",
				Model:       constants.FallbackModel,
				Temperature: 0.7,
				RateLimit:   2.0,
				RateBurst:   3,
			},
		},
		Models: map[string]ModelConfig{
			"gemini-2.0-flash": {
				Name:          "Gemini 2.0 Flash",
				Description:   "Fast multimodal model for everyday tasks",
				ContextWindow: 1048576,
			},
			"gemini-2.5-flash": {
				Name:          "Gemini 2.5 Flash",
				Description:   "Balanced price and performance with thinking",
				ContextWindow: 1048576,
			},
			"gemini-2.5-pro": {
				Name:          "Gemini 2.5 Pro",
				Description:   "Most capable model for complex reasoning",
				ContextWindow: 1048576,
			},
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// TypingInterval returns the pacer interval, falling back to the default when unset.
func (c *Config) TypingInterval() time.Duration {
	return millisOr(c.Typing.IntervalMS, constants.DefaultTypingInterval)
}

// ScrollQuietWindow returns the user-scroll quiet window.
func (c *Config) ScrollQuietWindow() time.Duration {
	return millisOr(c.Scroll.QuietMS, constants.DefaultScrollQuietWindow)
}

// AutoScrollDebounce returns the auto-scroll coalescing window.
func (c *Config) AutoScrollDebounce() time.Duration {
	return millisOr(c.Scroll.DebounceMS, constants.DefaultAutoScrollDebounce)
}

// AutoScrollMaxWait returns the longest auto-scroll can be deferred while
// requests keep arriving.
func (c *Config) AutoScrollMaxWait() time.Duration {
	return millisOr(c.Scroll.MaxWaitMS, constants.DefaultAutoScrollMaxWait)
}

// RequestTimeout returns the timeout for non-streaming API calls.
func (c *Config) RequestTimeout() time.Duration {
	return millisOr(c.Client.RequestTimeoutMS, constants.RequestTimeout)
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TYPECAST_ENDPOINT"); v != "" {
		cfg.Client.Endpoint = v
	}

	if v := os.Getenv("TYPECAST_TYPING_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Typing.IntervalMS = n
		}
	}

	if v := os.Getenv("TYPECAST_SCROLL_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scroll.DebounceMS = n
		}
	}

	if v := os.Getenv("TYPECAST_SCROLL_QUIET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scroll.QuietMS = n
		}
	}

	if v := os.Getenv("TYPECAST_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("TYPECAST_SERVER_PROVIDER"); v != "" {
		cfg.Server.Provider = v
	}

	if v := os.Getenv("TYPECAST_DEFAULT_MODEL"); v != "" {
		cfg.Server.DefaultModel = v
	}

	if v := os.Getenv("TYPECAST_SYSTEM_PROMPT"); v != "" {
		cfg.Server.SystemPrompt = v
	}

	if v := os.Getenv("TYPECAST_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	if v := os.Getenv("TYPECAST_OPENAI_ENDPOINT"); v != "" {
		if p, ok := cfg.Providers["openai"]; ok {
			p.Endpoint = v
			cfg.Providers["openai"] = p
		}
	}

	if v := os.Getenv("TYPECAST_OPENAI_MODEL"); v != "" {
		if p, ok := cfg.Providers["openai"]; ok {
			p.Model = v
			cfg.Providers["openai"] = p
		}
	}
}

// DataDir returns the path to the typecast data directory (~/.typecast).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".typecast"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
