// Package config loads the YAML configuration, the .env file and the key
// environment variables, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vampirenirmal/dramaturg/internal/completion"
	"github.com/vampirenirmal/dramaturg/internal/safety"
)

const (
	appName = "dramaturg"

	EnvConfigPath     = "DRAMATURG_CONFIG"
	EnvCompletionKey  = "OPENAI_API_KEY"
	EnvClassifierKey  = "PERSPECTIVE_API_KEY"
	completionKeyHint = "${" + EnvCompletionKey + "}"
	classifierKeyHint = "${" + EnvClassifierKey + "}"
)

type Config struct {
	AI     AIConfig     `yaml:"ai" validate:"required"`
	Safety SafetyConfig `yaml:"safety"`
	Paths  PathsConfig  `yaml:"paths" validate:"required"`
	Limits Limits       `yaml:"limits" validate:"required"`
}

type AIConfig struct {
	// Mock swaps the completion endpoint for canned responses; no key needed.
	Mock    bool   `yaml:"mock"`
	APIKey  string `yaml:"api_key" validate:"required_unless=Mock true"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Timeout int    `yaml:"timeout" validate:"required,min=1,max=3600"`

	Sampling SamplingConfig `yaml:"sampling"`
}

// SamplingConfig tunes the completion request. The defaults are the values
// the built-in templates were written against.
type SamplingConfig struct {
	Temperature      float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	TopP             float64 `yaml:"top_p" validate:"gt=0,lte=1"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" validate:"gte=-2,lte=2"`
	PresencePenalty  float64 `yaml:"presence_penalty" validate:"gte=-2,lte=2"`
}

// SafetyConfig configures the classifier. An empty APIKey disables the gate.
type SafetyConfig struct {
	APIKey     string   `yaml:"api_key"`
	BaseURL    string   `yaml:"base_url" validate:"required,url"`
	Threshold  float64  `yaml:"threshold" validate:"gt=0,lte=1"`
	Attributes []string `yaml:"attributes" validate:"required,min=1,dive,required"`
}

type PathsConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
	// Prompts is an optional directory of prompt overrides.
	Prompts string `yaml:"prompts"`
	Naming  string `yaml:"naming" validate:"omitempty,oneof=uuid timestamp descriptive"`
}

// Params are the completion client parameters for this config.
func (a AIConfig) Params() completion.Params {
	p := completion.DefaultParams()
	p.Model = a.Model
	p.Temperature = a.Sampling.Temperature
	p.TopP = a.Sampling.TopP
	p.FrequencyPenalty = a.Sampling.FrequencyPenalty
	p.PresencePenalty = a.Sampling.PresencePenalty
	return p
}

// RequestTimeout is the per-call deadline of the completion client.
func (a AIConfig) RequestTimeout() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// Default is the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Model:    completion.DefaultModel,
			BaseURL:  completion.DefaultBaseURL,
			Timeout:  int(completion.DefaultTimeout / time.Second),
			Sampling: defaultSampling(),
		},
		Safety: SafetyConfig{
			BaseURL:    safety.DefaultBaseURL,
			Threshold:  safety.DefaultThreshold,
			Attributes: append([]string(nil), safety.DefaultAttributes...),
		},
		Paths:  PathsConfig{Naming: "timestamp"},
		Limits: DefaultLimits(),
	}
}

func defaultSampling() SamplingConfig {
	p := completion.DefaultParams()
	return SamplingConfig{
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
	}
}

// Load reads the config at path, or at the resolved default location when
// path is empty. A missing file yields the defaults. Keys left blank, or set
// to their ${VAR} placeholder, are taken from the environment. Overrides run
// just before validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = Path()
	}

	cfg := Default()
	data, err := os.ReadFile(expandTilde(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.AI.APIKey = fromEnv(cfg.AI.APIKey, completionKeyHint, EnvCompletionKey)
	cfg.Safety.APIKey = fromEnv(cfg.Safety.APIKey, classifierKeyHint, EnvClassifierKey)

	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func fromEnv(value, placeholder, env string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == placeholder {
		return strings.TrimSpace(os.Getenv(env))
	}
	return value
}

// Path resolves the config file location: $DRAMATURG_CONFIG, then
// $XDG_CONFIG_HOME/dramaturg/config.yaml, then ~/.config/dramaturg/config.yaml.
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName, "config.yaml")
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate fills in the path defaults and checks every field.
func (c *Config) Validate() error {
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = filepath.Join(dataDir(), "output")
	} else {
		c.Paths.OutputDir = expandTilde(c.Paths.OutputDir)
	}
	if c.Paths.Prompts != "" {
		c.Paths.Prompts = expandTilde(c.Paths.Prompts)
	}

	validate := validator.New()
	validate.RegisterStructValidation(validateBudget, Budget{})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Save writes cfg to path with the keys replaced by their env placeholders.
func Save(cfg *Config, path string) error {
	out := *cfg
	out.AI.APIKey = completionKeyHint
	out.Safety.APIKey = classifierKeyHint

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
