package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials holds provider API keys, kept out of the main config file.
type Credentials struct {
	Providers map[string]ProviderCredentials `json:"providers"`
}

// ProviderCredentials holds the secret for a single provider.
type ProviderCredentials struct {
	APIKey string `json:"api_key"`
}

// credentialEnv maps provider names to the environment variables that carry their keys.
var credentialEnv = map[string]string{
	"openai": "TYPECAST_OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

func credentialsPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// LoadCredentials reads ~/.typecast/credentials.json (if present) and overlays keys
// found in the environment.
func LoadCredentials() (*Credentials, error) {
	creds := &Credentials{Providers: make(map[string]ProviderCredentials)}

	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		if creds.Providers == nil {
			creds.Providers = make(map[string]ProviderCredentials)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	for provider, env := range credentialEnv {
		if v := os.Getenv(env); v != "" {
			creds.SetAPIKey(provider, v)
		}
	}

	return creds, nil
}

// SaveCredentials writes credentials with owner-only permissions.
func SaveCredentials(creds *Credentials) error {
	if _, err := EnsureDataDir(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

// GetAPIKey returns the key for a provider, or "" when none is configured.
func (c *Credentials) GetAPIKey(provider string) string {
	if c == nil || c.Providers == nil {
		return ""
	}
	return c.Providers[provider].APIKey
}

// SetAPIKey stores the key for a provider.
func (c *Credentials) SetAPIKey(provider, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderCredentials)
	}
	c.Providers[provider] = ProviderCredentials{APIKey: key}
}
