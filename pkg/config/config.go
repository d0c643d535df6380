// Package config loads analyzer configuration from YAML files and the
// environment. Precedence, highest to lowest: environment variables, a
// .sql-analyzer.yaml in the working directory, ~/.config/sql-analyzer/
// config.yaml, built-in defaults.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultOllamaURL is the Ollama endpoint assumed when none is configured.
const DefaultOllamaURL = "http://localhost:11434"

// Config is the full application configuration.
type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Retry RetryConfig `yaml:"retry"`
	Rules RulesConfig `yaml:"rules"`
}

// RulesConfig controls which rules run and at which severity.
type RulesConfig struct {
	// Disabled lists rule IDs to skip; matching is case-insensitive.
	Disabled []string `yaml:"disabled"`
	// Severity maps rule ID to an override level (error, warning, info).
	// Unrecognized levels are ignored.
	Severity map[string]string `yaml:"severity"`
}

// LLMConfig selects the LLM provider used for the optional analysis stage.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	OllamaURL string `yaml:"ollama_url"`
}

// RetryConfig tunes the LLM request retry/backoff behavior.
type RetryConfig struct {
	MaxRetries     uint64 `yaml:"max_retries"`
	InitialDelayMS uint64 `yaml:"initial_delay_ms"`
	MaxDelayMS     uint64 `yaml:"max_delay_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			OllamaURL: DefaultOllamaURL,
		},
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialDelayMS: 1000,
			MaxDelayMS:     30000,
		},
		Rules: RulesConfig{
			Severity: map[string]string{},
		},
	}
}

// Load reads configuration from the standard locations. A config file in
// the working directory replaces one from the home directory wholesale;
// environment variables override individual LLM fields afterwards.
func Load() (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, ".config", "sql-analyzer", "config.yaml")
		if _, err := os.Stat(homeConfig); err == nil {
			slog.Debug("Loading configuration", "path", homeConfig)
			loaded, err := LoadFromFile(homeConfig)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	localConfig := ".sql-analyzer.yaml"
	if _, err := os.Stat(localConfig); err == nil {
		slog.Debug("Loading configuration", "path", localConfig)
		loaded, err := LoadFromFile(localConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFromFile reads a single YAML config file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	if cfg.LLM.OllamaURL == "" {
		cfg.LLM.OllamaURL = DefaultOllamaURL
	}
	if cfg.Rules.Severity == nil {
		cfg.Rules.Severity = map[string]string{}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.LLM.OllamaURL = v
	}
}
