package core

import "context"

// CompletionRequest is one call to the completion endpoint.
type CompletionRequest struct {
	APIKey    string
	Prompt    string
	MaxTokens int
}

// CompletionResult is what the completion endpoint answered. Exactly one of
// Text or ErrorType is meaningful: an error payload carries its type and no
// text, a normal payload carries the first choice (possibly empty).
type CompletionResult struct {
	Text      string
	ErrorType string
}

// Refused reports whether the endpoint answered with an error payload.
func (r CompletionResult) Refused() bool {
	return r.ErrorType != ""
}

// Completer issues completion requests. A returned error means the call was
// aborted: it timed out, failed in transport, or came back empty or
// unparseable.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// Gate screens generated text. With an empty key it must pass everything.
type Gate interface {
	Flagged(ctx context.Context, key, text string) (bool, error)
}
