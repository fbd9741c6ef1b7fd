package core

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultMaxFailures bounds the processing failures tolerated per stage.
const DefaultMaxFailures = 5

// State is a position in the retry state machine.
type State int

const (
	StateAttempting State = iota
	StateSucceeded
	StateTimedOut
	StateSafetyRejected
	StateGenerationFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed_out"
	case StateSafetyRejected:
		return "safety_rejected"
	case StateGenerationFailed:
		return "generation_failed"
	}
	return "unknown"
}

// GenerationRequest describes one stage invocation.
type GenerationRequest[T any] struct {
	Stage         Stage
	Prompt        string
	SampleLength  int
	MaxLength     int
	APIKey        string
	ClassifierKey string

	// Assemble, when set, builds the prompt at the start of every attempt in
	// place of Prompt. Its errors count as processing failures.
	Assemble func() (string, error)

	// Extract turns raw model text into the stage value. Any error it returns
	// counts as a processing failure and triggers a retry.
	Extract func(raw string) (T, error)

	// Screen picks the text the safety gate sees. Nil screens the raw text.
	Screen func(value T) string
}

// Controller replays a generation until it produces a usable, safe value
// or a terminal condition is reached.
type Controller struct {
	sampler     *Sampler
	gate        Gate
	maxFailures int
	logger      *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithGate sets the safety gate. Without one every value passes.
func WithGate(gate Gate) ControllerOption {
	return func(c *Controller) {
		c.gate = gate
	}
}

// WithMaxFailures overrides the failure bound.
func WithMaxFailures(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxFailures = n
		}
	}
}

// WithControllerLogger sets a custom logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger.With("component", "retry_controller")
	}
}

// NewController creates a retry controller.
func NewController(sampler *Sampler, opts ...ControllerOption) *Controller {
	c := &Controller{
		sampler:     sampler,
		maxFailures: DefaultMaxFailures,
		logger:      slog.Default().With("component", "retry_controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SampleUntilSuccess runs req through the loop, extraction and safety gate.
// Timeouts and safety rejections end the stage at once; processing failures
// (extraction errors or classifier failures) are retried up to the bound.
func SampleUntilSuccess[T any](ctx context.Context, c *Controller, req GenerationRequest[T]) Outcome[T] {
	logger := c.logger.With("stage", req.Stage)
	state := StateAttempting
	failures := 0
	attempts := 0

	transition := func(next State) {
		logger.Debug("retry state change", "from", state, "to", next, "attempt", attempts)
		state = next
	}

	for failures < c.maxFailures {
		attempts++

		prompt := req.Prompt
		if req.Assemble != nil {
			p, err := req.Assemble()
			if err != nil {
				failures++
				logger.Warn("assembling prompt failed",
					"attempt", attempts,
					"failures", failures,
					"error", err)
				continue
			}
			prompt = p
		}

		sample, err := c.sampler.Sample(ctx, req.APIKey, prompt, req.SampleLength, req.MaxLength)
		if err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				logger.Error("generation request rejected", "error", err)
				transition(StateGenerationFailed)
				return Failed[T](req.Stage, attempts, OutcomeGenerationError)
			}
			logger.Warn("generation timed out", "attempt", attempts, "error", err)
			transition(StateTimedOut)
			return Failed[T](req.Stage, attempts, OutcomeTimeout)
		}

		value, err := req.Extract(sample.Text)
		if err != nil {
			failures++
			logger.Warn("processing generated text failed",
				"attempt", attempts,
				"failures", failures,
				"max_failures", c.maxFailures,
				"error", err)
			continue
		}

		if c.gate != nil {
			screened := sample.Text
			if req.Screen != nil {
				screened = req.Screen(value)
			}
			flagged, err := c.gate.Flagged(ctx, req.ClassifierKey, screened)
			if err != nil {
				failures++
				logger.Warn("safety classification failed",
					"attempt", attempts,
					"failures", failures,
					"error", err)
				continue
			}
			if flagged {
				logger.Info("generated content rejected by safety gate", "attempt", attempts)
				transition(StateSafetyRejected)
				return Failed[T](req.Stage, attempts, OutcomeSafetyRejected)
			}
		}

		transition(StateSucceeded)
		logger.Info("generation succeeded",
			"attempts", attempts,
			"calls", sample.Calls,
			"stop", sample.Stop)
		return Succeeded(req.Stage, attempts, value)
	}

	logger.Error("giving up after repeated processing failures", "failures", failures)
	transition(StateGenerationFailed)
	return Failed[T](req.Stage, attempts, OutcomeGenerationError)
}
