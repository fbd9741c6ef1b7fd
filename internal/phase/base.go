// Package phase runs the generation stages against a session's story. Each
// entry point builds the stage request, hands it to the retry controller and
// stores the value only when the stage succeeds.
package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

// Budget bounds the text one stage may generate: SampleLength per call and
// MaxLength in total.
type Budget struct {
	SampleLength int
	MaxLength    int
}

// Validate checks the budget can drive the generation loop.
func (b Budget) Validate() error {
	if b.SampleLength <= 0 || b.MaxLength < b.SampleLength {
		return fmt.Errorf("%w: sample length %d, max length %d",
			core.ErrInvalidRequest, b.SampleLength, b.MaxLength)
	}
	return nil
}

// DefaultBudgets are the budgets each stage runs with unless configured.
func DefaultBudgets() map[core.Stage]Budget {
	return map[core.Stage]Budget{
		core.StageTitle:      {SampleLength: 64, MaxLength: 1024},
		core.StageCharacters: {SampleLength: 511, MaxLength: 2048},
		core.StageScenes:     {SampleLength: 511, MaxLength: 4096},
		core.StagePlace:      {SampleLength: 128, MaxLength: 1024},
		core.StageDialogue:   {SampleLength: 511, MaxLength: 1024},
	}
}

// runStage fills in the budget and keys for req, runs it and logs the
// outcome.
func runStage[T any](ctx context.Context, g *Generator, sess *story.Session, req core.GenerationRequest[T]) core.Outcome[T] {
	budget := g.budgets[req.Stage]
	req.SampleLength = budget.SampleLength
	req.MaxLength = budget.MaxLength
	req.APIKey = sess.Credentials.CompletionKey
	req.ClassifierKey = sess.Credentials.ClassifierKey

	logger := g.logger.With("stage", req.Stage, "session_id", sess.ShortID())
	logger.Info("starting stage",
		"sample_length", budget.SampleLength,
		"max_length", budget.MaxLength,
		"safety_gate", sess.Credentials.ClassifierKey != "")

	start := time.Now()
	out := core.SampleUntilSuccess(ctx, g.controller, req)
	duration := time.Since(start)

	if out.OK() {
		logger.Info("stage completed",
			"attempts", out.Attempts,
			"duration_ms", duration.Milliseconds())
	} else {
		logger.Error("stage failed",
			"outcome", out.Kind,
			"attempts", out.Attempts,
			"duration_ms", duration.Milliseconds())
	}
	return out
}
