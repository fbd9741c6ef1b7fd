package completion

import (
	"context"
	"strings"
	"sync"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

// MockClient provides canned completions for offline runs and tests. It
// answers a prompt once; a continuation of an answered prompt gets an empty
// completion, which ends the generation loop.
type MockClient struct {
	mu        sync.Mutex
	responses map[core.Stage]string
	answered  []string
	calls     int
}

// NewMockClient creates a mock completion client with a small built-in story.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: map[core.Stage]string{
			core.StageTitle: "The Lighthouse Keeper's Daughter.<end>",
			core.StageCharacters: "<character>Mara <description>Mara is the hero. A young lighthouse keeper who has never left the island.<stop>\n" +
				"<character>Tobias <description>Tobias is a shipwrecked sailor with a secret.<stop>\n<end>",
			core.StageScenes: "Place: The Lighthouse.\n" +
				"Plot element: The Ordinary World.\n" +
				"Beat: Mara tends the lamp alone during a storm.\n\n" +
				"Place: The Rocky Shore.\n" +
				"Plot element: Call to Adventure.\n" +
				"Beat: Mara pulls Tobias from the wreckage of his ship.\n<end>",
			core.StagePlace: "A narrow tower of white stone, its lamp room thick with the smell of oil.<end>",
			core.StageDialogue: "MARA\nHold on. The light will bring them.\n\n" +
				"TOBIAS\nNo one is coming for me.\n<end>",
		},
	}
}

// SetResponse overrides the canned completion of a stage.
func (m *MockClient) SetResponse(stage core.Stage, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[stage] = text
}

// Calls returns the number of requests served.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockClient) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	for _, p := range m.answered {
		if req.Prompt != p && strings.HasPrefix(req.Prompt, p) {
			return core.CompletionResult{}, nil
		}
	}
	m.answered = append(m.answered, req.Prompt)

	return core.CompletionResult{Text: m.responses[detectStage(req.Prompt)]}, nil
}

// ValidateKey accepts any non-empty key.
func (m *MockClient) ValidateKey(ctx context.Context, key string) error {
	if key == "" {
		return &core.APIError{Type: "invalid_request_error", Message: "missing key", StatusCode: 401}
	}
	return nil
}

// detectStage works out which stage a prompt belongs to from the markers its
// template and tail carry.
func detectStage(prompt string) core.Stage {
	switch {
	case strings.HasSuffix(prompt, "<scenes>\n"):
		return core.StageScenes
	case strings.Contains(prompt, "<dialog>"):
		return core.StageDialogue
	case strings.HasSuffix(prompt, "Description: "):
		return core.StagePlace
	case strings.Contains(prompt, "<character>"):
		return core.StageCharacters
	case strings.Contains(prompt, "Title: "):
		return core.StageTitle
	}
	return ""
}
