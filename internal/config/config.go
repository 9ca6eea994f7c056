// Package config loads the assistant's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted for the API key, in order.
const (
	EnvAPIKey       = "ASSIST_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

const defaultSystemPrompt = `You are a helpful personal assistant running in the user's terminal.
Use the available tools when they help answer the request. Be concise.`

// Config is the file-backed CLI configuration. Zero durations and counts mean "use the default".
type Config struct {
	Name           string        `yaml:"name"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	APIKey         string        `yaml:"api_key,omitempty"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens,omitempty"`
	MaxIterations  int           `yaml:"max_iterations"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SystemPrompt   string        `yaml:"system_prompt"`
	SessionFile    string        `yaml:"session_file,omitempty"`
	LogLevel       string        `yaml:"log_level"`
	Style          string        `yaml:"style,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Name:           "Assistant",
		Model:          "gpt-4o-mini",
		Temperature:    0.2,
		MaxIterations:  16,
		ToolTimeout:    30 * time.Second,
		RequestTimeout: 2 * time.Minute,
		SystemPrompt:   defaultSystemPrompt,
		LogLevel:       "warn",
		Style:          "auto",
	}
}

// DefaultPath returns ~/.config/assist/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".assist", "config.yaml")
	}
	return filepath.Join(dir, "assist", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
// An empty path means DefaultPath(). The API key falls back to the environment.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.APIKey != "" {
		return
	}
	for _, name := range []string{EnvAPIKey, EnvOpenAIAPIKey} {
		if v := os.Getenv(name); v != "" {
			c.APIKey = v
			return
		}
	}
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if len(c.APIKey) > 4 {
		c.APIKey = "****" + c.APIKey[len(c.APIKey)-4:]
	} else if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Model) == "":
		return errors.New("model is required")
	case c.MaxIterations < 0:
		return fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations)
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature)
	case c.ToolTimeout < 0 || c.RequestTimeout < 0:
		return errors.New("timeouts must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level value to slog. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
