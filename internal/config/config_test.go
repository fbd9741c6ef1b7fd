package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := *Default()
	cfg.AI.APIKey = "sk-1234567890abcdef1234567890abcdef"
	cfg.Paths.OutputDir = "output"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "blank completion key",
			modify:  func(c *Config) { c.AI.APIKey = "" },
			wantErr: true,
			errMsg:  "APIKey",
		},
		{
			name: "mock needs no key",
			modify: func(c *Config) {
				c.AI.APIKey = ""
				c.AI.Mock = true
			},
		},
		{
			name:   "classifier key is optional",
			modify: func(c *Config) { c.Safety.APIKey = "" },
		},
		{
			name:    "invalid base URL",
			modify:  func(c *Config) { c.AI.BaseURL = "not-a-url" },
			wantErr: true,
			errMsg:  "BaseURL",
		},
		{
			name:    "timeout too high",
			modify:  func(c *Config) { c.AI.Timeout = 7200 },
			wantErr: true,
			errMsg:  "Timeout",
		},
		{
			name:    "zero top_p",
			modify:  func(c *Config) { c.AI.Sampling.TopP = 0 },
			wantErr: true,
			errMsg:  "TopP",
		},
		{
			name:    "threshold above one",
			modify:  func(c *Config) { c.Safety.Threshold = 1.5 },
			wantErr: true,
			errMsg:  "Threshold",
		},
		{
			name:    "no classifier attributes",
			modify:  func(c *Config) { c.Safety.Attributes = nil },
			wantErr: true,
			errMsg:  "Attributes",
		},
		{
			name:    "unknown naming",
			modify:  func(c *Config) { c.Paths.Naming = "random" },
			wantErr: true,
			errMsg:  "Naming",
		},
		{
			name:    "zero failures",
			modify:  func(c *Config) { c.Limits.MaxFailures = 0 },
			wantErr: true,
			errMsg:  "MaxFailures",
		},
		{
			name:    "budget smaller than one sample",
			modify:  func(c *Config) { c.Limits.Stages.Dialogue = Budget{SampleLength: 511, MaxLength: 100} },
			wantErr: true,
			errMsg:  "gtefield",
		},
		{
			name:    "missing sample length",
			modify:  func(c *Config) { c.Limits.Stages.Title.SampleLength = 0 },
			wantErr: true,
			errMsg:  "SampleLength",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestAIParams(t *testing.T) {
	cfg := validConfig()
	if got := cfg.AI.Params(); got.Temperature != 0.99 || got.TopP != 1 || got.FrequencyPenalty != 0.23 {
		t.Errorf("default params = %+v", got)
	}

	cfg.AI.Model = "davinci-002"
	cfg.AI.Sampling.Temperature = 0.5
	got := cfg.AI.Params()
	if got.Model != "davinci-002" || got.Temperature != 0.5 {
		t.Errorf("params = %+v", got)
	}
	if len(got.Stop) == 0 || got.N != 1 {
		t.Errorf("fixed params lost: %+v", got)
	}
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	if limits.ModelMaxLength != 4097 || limits.MaxFailures != 5 {
		t.Errorf("limits = %+v", limits)
	}

	budgets := limits.Stages.ByStage()
	if len(budgets) != 5 {
		t.Fatalf("ByStage() has %d stages", len(budgets))
	}
	for stage, b := range budgets {
		if b.SampleLength <= 0 || b.MaxLength < b.SampleLength {
			t.Errorf("%s budget %+v", stage, b)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults with env key", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvCompletionKey, "sk-from-env")
		t.Setenv(EnvClassifierKey, "")
		t.Setenv("XDG_DATA_HOME", dir)

		cfg, err := Load(filepath.Join(dir, "absent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.AI.APIKey != "sk-from-env" || cfg.Safety.APIKey != "" {
			t.Errorf("keys = %q, %q", cfg.AI.APIKey, cfg.Safety.APIKey)
		}
		if cfg.AI.Model != "text-davinci-002" {
			t.Errorf("model = %q", cfg.AI.Model)
		}
		if cfg.Paths.OutputDir != filepath.Join(dir, "dramaturg", "output") {
			t.Errorf("output dir = %q", cfg.Paths.OutputDir)
		}
	})

	t.Run("file values merge onto defaults", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvCompletionKey, "")
		t.Setenv(EnvClassifierKey, "pk-from-env")
		path := filepath.Join(dir, "config.yaml")
		yaml := `ai:
  api_key: sk-from-file
  model: davinci-002
  sampling:
    temperature: 0.8
safety:
  api_key: ${PERSPECTIVE_API_KEY}
  threshold: 0.5
paths:
  output_dir: ` + filepath.Join(dir, "out") + `
limits:
  stages:
    dialogue:
      sample_length: 256
      max_length: 2048
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.AI.APIKey != "sk-from-file" || cfg.AI.Model != "davinci-002" {
			t.Errorf("ai = %+v", cfg.AI)
		}
		if cfg.AI.Sampling.Temperature != 0.8 || cfg.AI.Sampling.TopP != 1 {
			t.Errorf("sampling = %+v", cfg.AI.Sampling)
		}
		if cfg.AI.BaseURL != "https://api.openai.com/v1" || cfg.AI.Timeout != 60 {
			t.Errorf("ai defaults lost: %+v", cfg.AI)
		}
		if cfg.Safety.APIKey != "pk-from-env" || cfg.Safety.Threshold != 0.5 {
			t.Errorf("safety = %+v", cfg.Safety)
		}
		if got := cfg.Limits.Stages.Dialogue; got.SampleLength != 256 || got.MaxLength != 2048 {
			t.Errorf("dialogue budget = %+v", got)
		}
		if got := cfg.Limits.Stages.Title; got.SampleLength != 64 {
			t.Errorf("title budget = %+v", got)
		}
	})

	t.Run("blank key fails validation", func(t *testing.T) {
		t.Setenv(EnvCompletionKey, "")
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing completion key")
		}
	})

	t.Run("override applies before validation", func(t *testing.T) {
		t.Setenv(EnvCompletionKey, "")
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), func(c *Config) { c.AI.Mock = true })
		if err != nil {
			t.Fatal(err)
		}
		if !cfg.AI.Mock {
			t.Error("override not applied")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("ai: [unterminated"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := Path(); got != filepath.Join("/xdg", "dramaturg", "config.yaml") {
		t.Errorf("Path() = %q", got)
	}

	t.Setenv(EnvConfigPath, "/etc/dramaturg.yaml")
	if got := Path(); got != "/etc/dramaturg.yaml" {
		t.Errorf("Path() = %q", got)
	}
}

func TestSaveHidesKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Safety.APIKey = "pk-secret"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := Save(&cfg, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "sk-1234") || strings.Contains(string(data), "pk-secret") {
		t.Errorf("saved config leaks keys:\n%s", data)
	}

	t.Setenv(EnvCompletionKey, "sk-env")
	t.Setenv(EnvClassifierKey, "pk-env")
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AI.APIKey != "sk-env" || loaded.Safety.APIKey != "pk-env" {
		t.Errorf("placeholders not resolved: %q %q", loaded.AI.APIKey, loaded.Safety.APIKey)
	}
}
