package phase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/extract"
	"github.com/vampirenirmal/dramaturg/internal/prompt"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

// Generator holds the per-stage entry points. A stage writes its field of
// the session's story only on success.
type Generator struct {
	assembler  *prompt.Assembler
	controller *core.Controller
	budgets    map[core.Stage]Budget
	logger     *slog.Logger
}

type Option func(*Generator)

// WithBudget overrides the budget of one stage. Invalid budgets are ignored.
func WithBudget(stage core.Stage, budget Budget) Option {
	return func(g *Generator) {
		if budget.Validate() == nil {
			g.budgets[stage] = budget
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger.With("component", "generator")
	}
}

func NewGenerator(assembler *prompt.Assembler, controller *core.Controller, opts ...Option) *Generator {
	g := &Generator{
		assembler:  assembler,
		controller: controller,
		budgets:    DefaultBudgets(),
		logger:     slog.Default().With("component", "generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Budget returns the budget a stage runs with.
func (g *Generator) Budget(stage core.Stage) Budget {
	return g.budgets[stage]
}

// Title generates the script title.
func (g *Generator) Title(ctx context.Context, sess *story.Session) core.Outcome[string] {
	out := runStage(ctx, g, sess, core.GenerationRequest[string]{
		Stage: core.StageTitle,
		Assemble: func() (string, error) {
			return g.assembler.Title(sess.Story.Storyline)
		},
		Extract: func(raw string) (string, error) {
			title := extract.Title(raw)
			if title == "" {
				return "", core.NewProcessingError(core.StageTitle, "extract_title", "no title in completion")
			}
			return title, nil
		},
		Screen: verbatim,
	})
	if title, ok := out.Value(); ok {
		sess.Story.Title = title
	}
	return out
}

// Characters generates the cast.
func (g *Generator) Characters(ctx context.Context, sess *story.Session) core.Outcome[[]story.Character] {
	out := runStage(ctx, g, sess, core.GenerationRequest[[]story.Character]{
		Stage: core.StageCharacters,
		Assemble: func() (string, error) {
			return g.assembler.Characters(sess.Story.Storyline)
		},
		Extract: func(raw string) ([]story.Character, error) {
			chars := extract.Characters(raw)
			if len(chars) == 0 {
				return nil, core.NewProcessingError(core.StageCharacters, "extract_characters", "no well-formed character")
			}
			return chars, nil
		},
		Screen: characterLines,
	})
	if chars, ok := out.Value(); ok {
		sess.Story.Characters = chars
	}
	return out
}

// Outline is the result of the scenes stage: the outline text the dialogue
// prompts are cut from and the scenes parsed out of it.
type Outline struct {
	Text   string
	Scenes []story.SceneDescriptor
}

// Scenes generates the scene outline from the storyline and the cast.
func (g *Generator) Scenes(ctx context.Context, sess *story.Session) core.Outcome[Outline] {
	out := runStage(ctx, g, sess, core.GenerationRequest[Outline]{
		Stage: core.StageScenes,
		Assemble: func() (string, error) {
			return g.assembler.Scenes(sess.Story.Storyline, sess.Story.CharactersText())
		},
		Extract: func(raw string) (Outline, error) {
			text, err := extract.Scenes(raw)
			if err != nil {
				return Outline{}, err
			}
			scenes, err := extract.ParseScenes(text)
			if err != nil {
				return Outline{}, err
			}
			return Outline{Text: text, Scenes: scenes}, nil
		},
		Screen: func(o Outline) string { return o.Text },
	})
	if outline, ok := out.Value(); ok {
		sess.Story.SceneText = outline.Text
		sess.Story.Scenes = outline.Scenes
	}
	return out
}

// Place generates the description of one location.
func (g *Generator) Place(ctx context.Context, sess *story.Session, name string) core.Outcome[story.Place] {
	prefix := prompt.PlacePrefix(name)

	out := runStage(ctx, g, sess, core.GenerationRequest[story.Place]{
		Stage: core.StagePlace,
		Assemble: func() (string, error) {
			return g.assembler.Place(sess.Story.Storyline, name)
		},
		Extract: func(raw string) (story.Place, error) {
			desc, err := extract.PlaceDescription(raw)
			if err != nil {
				return story.Place{}, err
			}
			return story.Place{Name: name, Description: desc}, nil
		},
		Screen: func(pl story.Place) string { return extract.Place(prefix, pl.Description) },
	})
	if place, ok := out.Value(); ok {
		sess.Story.SetPlace(place)
	}
	return out
}

// PlacesReport summarizes a run over every place of the outline.
type PlacesReport struct {
	Generated []string
	Rejected  []string
	// Remaining holds the place that stopped the run and those after it.
	Remaining []string
	// Stop is the outcome that ended the run early, or OutcomeSuccess.
	Stop core.OutcomeKind
}

// Complete reports whether every place was attempted.
func (r PlacesReport) Complete() bool {
	return r.Stop == core.OutcomeSuccess
}

// Places generates a description for each distinct place of the outline, in
// order. A timeout or generation failure stops the run and keeps what was
// generated; a rejected place is skipped.
func (g *Generator) Places(ctx context.Context, sess *story.Session) PlacesReport {
	return g.PlacesNamed(ctx, sess, uniqueNames(extract.PlaceNames(sess.Story.SceneText)))
}

// MissingPlaces lists the distinct places of the outline that have no
// description yet.
func MissingPlaces(s *story.StoryState) []string {
	var missing []string
	for _, name := range uniqueNames(extract.PlaceNames(s.SceneText)) {
		if _, ok := s.PlaceDescription(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// PlacesNamed runs the places loop over the given names.
func (g *Generator) PlacesNamed(ctx context.Context, sess *story.Session, names []string) PlacesReport {
	var report PlacesReport
	for i, name := range names {
		out := g.Place(ctx, sess, name)
		switch out.Kind {
		case core.OutcomeSuccess:
			report.Generated = append(report.Generated, name)
		case core.OutcomeSafetyRejected:
			report.Rejected = append(report.Rejected, name)
		default:
			report.Stop = out.Kind
			report.Remaining = append(report.Remaining, names[i:]...)
			g.logger.Warn("place generation stopped",
				"place", name,
				"outcome", out.Kind,
				"generated", len(report.Generated),
				"remaining", len(report.Remaining))
			return report
		}
	}
	return report
}

// Dialogue generates the dialogue of a 1-based scene.
func (g *Generator) Dialogue(ctx context.Context, sess *story.Session, sceneIndex int) core.Outcome[string] {
	out := runStage(ctx, g, sess, core.GenerationRequest[string]{
		Stage: core.StageDialogue,
		Assemble: func() (string, error) {
			return g.assembler.Dialogue(sess.Story, sceneIndex)
		},
		Extract: extract.Dialogue,
		Screen:  verbatim,
	})
	if dialogue, ok := out.Value(); ok {
		sess.Story.SetDialogue(sceneIndex, dialogue)
	}
	return out
}

// ContinueDialogue extends the existing dialogue of a scene. The outcome
// carries the new text only; the stored dialogue gets it appended.
func (g *Generator) ContinueDialogue(ctx context.Context, sess *story.Session, sceneIndex int) core.Outcome[string] {
	existing := sess.Story.Dialogue[sceneIndex]
	if strings.TrimSpace(existing) == "" {
		return g.Dialogue(ctx, sess, sceneIndex)
	}

	out := runStage(ctx, g, sess, core.GenerationRequest[string]{
		Stage: core.StageDialogue,
		Assemble: func() (string, error) {
			return g.assembler.DialogueContinuation(sess.Story, sceneIndex, existing)
		},
		Extract: extract.Dialogue,
		Screen:  verbatim,
	})
	if more, ok := out.Value(); ok {
		sess.Story.SetDialogue(sceneIndex, strings.TrimSpace(existing)+"\n\n"+more)
	}
	return out
}

func verbatim(s string) string { return s }

func characterLines(chars []story.Character) string {
	lines := make([]string, 0, len(chars))
	for _, c := range chars {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
