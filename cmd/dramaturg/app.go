package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/completion"
	"github.com/vampirenirmal/dramaturg/internal/config"
	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/phase"
	"github.com/vampirenirmal/dramaturg/internal/prompt"
	"github.com/vampirenirmal/dramaturg/internal/render"
	"github.com/vampirenirmal/dramaturg/internal/safety"
	"github.com/vampirenirmal/dramaturg/internal/storage"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

// completer is a completion endpoint that can also check a key.
type completer interface {
	core.Completer
	ValidateKey(ctx context.Context, key string) error
}

// app is everything a command needs, built once from the config.
type app struct {
	cfg       *config.Config
	completer completer
	gate      *safety.Gate
	generator *phase.Generator
	sessions  *storage.Sessions
	logger    *slog.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	logger := slog.Default()
	rl := cfg.Limits.RateLimit

	var c completer
	if cfg.AI.Mock {
		c = completion.NewMockClient()
	} else {
		c = completion.NewClient(
			completion.WithBaseURL(cfg.AI.BaseURL),
			completion.WithParams(cfg.AI.Params()),
			completion.WithTimeout(cfg.AI.RequestTimeout()),
			completion.WithRateLimit(rl.RequestsPerMinute, rl.BurstSize),
			completion.WithLogger(logger),
		)
	}

	classifier := safety.NewClassifier(
		safety.WithBaseURL(cfg.Safety.BaseURL),
		safety.WithAttributes(cfg.Safety.Attributes),
		safety.WithTimeout(cfg.AI.RequestTimeout()),
		safety.WithRateLimit(rl.RequestsPerMinute, rl.BurstSize),
		safety.WithLogger(logger),
	)
	gate := safety.NewGate(classifier,
		safety.WithThreshold(cfg.Safety.Threshold),
		safety.WithGateLogger(logger),
	)

	sampler := core.NewSampler(c,
		core.WithModelMaxLength(cfg.Limits.ModelMaxLength),
		core.WithSamplerLogger(logger),
	)
	controller := core.NewController(sampler,
		core.WithGate(gate),
		core.WithMaxFailures(cfg.Limits.MaxFailures),
		core.WithControllerLogger(logger),
	)

	store := prompt.NewStore(prompt.WithOverrideDir(cfg.Paths.Prompts), prompt.WithLogger(logger))
	if err := store.Preload(); err != nil {
		return nil, err
	}
	opts := []phase.Option{phase.WithLogger(logger)}
	for stage, b := range cfg.Limits.Stages.ByStage() {
		opts = append(opts, phase.WithBudget(stage, phase.Budget{SampleLength: b.SampleLength, MaxLength: b.MaxLength}))
	}

	fs := storage.NewFileSystem(cfg.Paths.OutputDir)
	return &app{
		cfg:       cfg,
		completer: c,
		gate:      gate,
		generator: phase.NewGenerator(prompt.NewAssembler(store), controller, opts...),
		sessions: storage.NewSessions(fs,
			storage.WithNaming(storage.ParseNaming(cfg.Paths.Naming)),
			storage.WithLogger(logger)),
		logger: logger,
	}, nil
}

// credentials are the session keys. Mock runs stay offline, so they never
// reach the classifier.
func (a *app) credentials() story.Credentials {
	creds := story.Credentials{
		CompletionKey: a.cfg.AI.APIKey,
		ClassifierKey: a.cfg.Safety.APIKey,
	}
	if a.cfg.AI.Mock {
		creds.ClassifierKey = ""
	}
	return creds
}

// openSession loads a saved session, or starts one from a storyline.
func (a *app) openSession(ctx context.Context, dir, storyline string) (*story.Session, error) {
	switch {
	case dir != "":
		return a.sessions.Load(ctx, dir, a.credentials())
	case strings.TrimSpace(storyline) != "":
		return story.NewSession(a.credentials(), storyline), nil
	default:
		return nil, errors.New("pass a storyline or --session")
	}
}

// export renders the script and writes it next to the session state.
func (a *app) export(ctx context.Context, sess *story.Session) (string, error) {
	dir, err := a.sessions.Export(ctx, sess, render.Script(sess.Story))
	if err != nil {
		return "", fmt.Errorf("exporting script: %w", err)
	}
	return dir, nil
}
