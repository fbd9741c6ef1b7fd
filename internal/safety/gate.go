package safety

import (
	"context"
	"log/slog"
)

const (
	DefaultThreshold = 0.8

	validationText = "placeholder text"
)

// Gate flags text whose score on any attribute exceeds the threshold. It
// implements core.Gate.
type Gate struct {
	classifier *Classifier
	threshold  float64
	logger     *slog.Logger
}

type GateOption func(*Gate)

func WithThreshold(threshold float64) GateOption {
	return func(g *Gate) {
		g.threshold = threshold
	}
}

func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger.With("component", "safety_gate")
	}
}

func NewGate(classifier *Classifier, opts ...GateOption) *Gate {
	g := &Gate{
		classifier: classifier,
		threshold:  DefaultThreshold,
		logger:     slog.Default().With("component", "safety_gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Flagged screens text. With no key the gate is disabled and passes
// everything. Classifier failures are returned to the caller.
func (g *Gate) Flagged(ctx context.Context, key, text string) (bool, error) {
	if key == "" {
		return false, nil
	}

	scores, err := g.classifier.Analyze(ctx, key, text)
	if err != nil {
		return false, err
	}

	for _, attr := range g.classifier.Attributes() {
		if score := scores[attr]; score > g.threshold {
			g.logger.Info("text flagged",
				"attribute", attr,
				"score", score,
				"threshold", g.threshold)
			return true, nil
		}
	}
	return false, nil
}

// ValidateKey reports whether the classifier accepts key. An empty key is
// valid: it disables the gate.
func (g *Gate) ValidateKey(ctx context.Context, key string) bool {
	if _, err := g.Flagged(ctx, key, validationText); err != nil {
		g.logger.Debug("classifier key rejected", "error", err)
		return false
	}
	return true
}
