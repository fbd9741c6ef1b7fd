package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

type Limits struct {
	ModelMaxLength int             `yaml:"model_max_length" validate:"required,min=1"`
	MaxFailures    int             `yaml:"max_failures" validate:"required,min=1,max=100"`
	Stages         StageLimits     `yaml:"stages"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

// Budget is the generation budget of one stage, in characters.
type Budget struct {
	SampleLength int `yaml:"sample_length" validate:"required,min=1"`
	MaxLength    int `yaml:"max_length" validate:"required,min=1"`
}

type StageLimits struct {
	Title      Budget `yaml:"title"`
	Characters Budget `yaml:"characters"`
	Scenes     Budget `yaml:"scenes"`
	Place      Budget `yaml:"place"`
	Dialogue   Budget `yaml:"dialogue"`
}

// ByStage keys the budgets by stage.
func (s StageLimits) ByStage() map[core.Stage]Budget {
	return map[core.Stage]Budget{
		core.StageTitle:      s.Title,
		core.StageCharacters: s.Characters,
		core.StageScenes:     s.Scenes,
		core.StagePlace:      s.Place,
		core.StageDialogue:   s.Dialogue,
	}
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

func DefaultLimits() Limits {
	return Limits{
		ModelMaxLength: core.DefaultModelMaxLength,
		MaxFailures:    core.DefaultMaxFailures,
		Stages: StageLimits{
			Title:      Budget{SampleLength: 64, MaxLength: 1024},
			Characters: Budget{SampleLength: 511, MaxLength: 2048},
			Scenes:     Budget{SampleLength: 511, MaxLength: 4096},
			Place:      Budget{SampleLength: 128, MaxLength: 1024},
			Dialogue:   Budget{SampleLength: 511, MaxLength: 1024},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         5,
		},
	}
}

// validateBudget rejects budgets whose total is smaller than one sample.
func validateBudget(sl validator.StructLevel) {
	b := sl.Current().Interface().(Budget)
	if b.MaxLength < b.SampleLength {
		sl.ReportError(b.MaxLength, "MaxLength", "max_length", "gtefield", "SampleLength")
	}
}
