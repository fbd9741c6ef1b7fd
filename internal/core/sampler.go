package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultModelMaxLength is the context window of the completion model,
	// counted in characters against prompt plus accumulated output.
	DefaultModelMaxLength = 4097

	newExamplePrefix = "Example "
)

// StopReason says why a chunked generation ended.
type StopReason int

const (
	StopCallLimit StopReason = iota
	StopBudgetReached
	StopContextExhausted
	StopRefused
	StopEmpty
	StopNewExample
)

func (r StopReason) String() string {
	switch r {
	case StopCallLimit:
		return "call_limit"
	case StopBudgetReached:
		return "budget_reached"
	case StopContextExhausted:
		return "context_exhausted"
	case StopRefused:
		return "refused"
	case StopEmpty:
		return "empty"
	case StopNewExample:
		return "new_example"
	}
	return "unknown"
}

// Sample is the text accumulated by one chunked generation.
type Sample struct {
	Text  string
	Calls int
	Stop  StopReason
}

// Sampler drives the chunked generation loop: it keeps asking the model to
// continue prompt+output until the length budget, the call bound or the
// model context runs out, or the model signals a natural end.
type Sampler struct {
	client         Completer
	modelMaxLength int
	logger         *slog.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithModelMaxLength overrides the model context window.
func WithModelMaxLength(n int) SamplerOption {
	return func(s *Sampler) {
		s.modelMaxLength = n
	}
}

// WithSamplerLogger sets a custom logger.
func WithSamplerLogger(logger *slog.Logger) SamplerOption {
	return func(s *Sampler) {
		s.logger = logger.With("component", "sampler")
	}
}

// NewSampler creates a sampler over a completion client.
func NewSampler(client Completer, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		client:         client,
		modelMaxLength: DefaultModelMaxLength,
		logger:         slog.Default().With("component", "sampler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxCalls is the call bound for a generation: round(max/sample)+1.
func MaxCalls(sampleLength, maxLength int) int {
	if sampleLength <= 0 {
		return 0
	}
	return int(math.Floor(float64(maxLength)/float64(sampleLength)+0.5)) + 1
}

// Sample runs the loop. The returned error wraps ErrTimeout when a call was
// aborted, or ErrInvalidRequest when the lengths are unusable.
func (s *Sampler) Sample(ctx context.Context, apiKey, prompt string, sampleLength, maxLength int) (Sample, error) {
	if sampleLength <= 0 || maxLength < sampleLength {
		return Sample{}, fmt.Errorf("%w: sample length %d, max length %d",
			ErrInvalidRequest, sampleLength, maxLength)
	}

	limit := MaxCalls(sampleLength, maxLength)
	var (
		out       Sample
		result    strings.Builder
		resultLen int
	)

	for {
		if out.Calls >= limit {
			out.Stop = StopCallLimit
			break
		}
		if resultLen >= maxLength {
			out.Stop = StopBudgetReached
			break
		}

		full := prompt + result.String()
		available := s.modelMaxLength - utf8.RuneCountInString(full)
		// A zero-length request cannot yield text, so it ends the loop too.
		tokens := min(available, sampleLength)
		if tokens <= 0 {
			out.Stop = StopContextExhausted
			break
		}

		out.Calls++
		res, err := s.client.Complete(ctx, CompletionRequest{
			APIKey:    apiKey,
			Prompt:    full,
			MaxTokens: tokens,
		})
		if err != nil {
			out.Text = result.String()
			s.logger.Warn("completion call aborted",
				"call", out.Calls,
				"result_length", resultLen,
				"error", err)
			return out, fmt.Errorf("%w: call %d: %w", ErrTimeout, out.Calls, err)
		}
		if res.Refused() {
			s.logger.Debug("completion endpoint refused, treating as end of text",
				"error_type", res.ErrorType)
			out.Stop = StopRefused
			break
		}

		text := strings.TrimSpace(res.Text)
		if text == "" {
			out.Stop = StopEmpty
			break
		}
		if strings.HasPrefix(text, newExamplePrefix) {
			out.Stop = StopNewExample
			break
		}

		result.WriteString(text)
		result.WriteString(" ")
		resultLen += utf8.RuneCountInString(text) + 1
	}

	out.Text = result.String()
	s.logger.Debug("chunked generation finished",
		"calls", out.Calls,
		"max_calls", limit,
		"result_length", resultLen,
		"stop", out.Stop)
	return out, nil
}
