package core

// OutcomeKind tags a GenerationOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTimeout
	OutcomeGenerationError
	OutcomeSafetyRejected
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeGenerationError:
		return "generation_error"
	case OutcomeSafetyRejected:
		return "safety_rejected"
	}
	return "unknown"
}

// Outcome is the result of one stage invocation. Only a success carries a
// value; the other kinds are pure signals.
type Outcome[T any] struct {
	Stage    Stage
	Kind     OutcomeKind
	Attempts int
	value    T
}

// Succeeded builds a success outcome.
func Succeeded[T any](stage Stage, attempts int, value T) Outcome[T] {
	return Outcome[T]{Stage: stage, Kind: OutcomeSuccess, Attempts: attempts, value: value}
}

// Failed builds a non-success outcome.
func Failed[T any](stage Stage, attempts int, kind OutcomeKind) Outcome[T] {
	return Outcome[T]{Stage: stage, Kind: kind, Attempts: attempts}
}

// Value returns the success value; ok is false for every other kind.
func (o Outcome[T]) Value() (T, bool) {
	if o.Kind != OutcomeSuccess {
		var zero T
		return zero, false
	}
	return o.value, true
}

// OK reports a success.
func (o Outcome[T]) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err converts a non-success outcome into a *StageError wrapping the matching
// sentinel. It returns nil for a success.
func (o Outcome[T]) Err() error {
	var cause error
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeTimeout:
		cause = ErrTimeout
	case OutcomeSafetyRejected:
		cause = ErrSafetyRejected
	default:
		cause = ErrGeneration
	}
	return &StageError{Stage: o.Stage, Attempts: o.Attempts, Cause: cause}
}
