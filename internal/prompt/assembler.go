package prompt

import (
	"fmt"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

// Assembler builds the generation prompt of each stage from its template and
// the story so far. Every prompt stops right where the model is expected to
// continue.
type Assembler struct {
	store *Store
}

// NewAssembler creates an assembler over a template store.
func NewAssembler(store *Store) *Assembler {
	return &Assembler{store: store}
}

// Title prompt: template followed by the storyline.
func (a *Assembler) Title(storyline string) (string, error) {
	return a.withTemplate(core.StageTitle, storyline)
}

// Characters prompt: template followed by the storyline.
func (a *Assembler) Characters(storyline string) (string, error) {
	return a.withTemplate(core.StageCharacters, storyline)
}

// Scenes prompt: storyline, the "Name: Description" character lines, then the
// scenes marker the model continues after.
func (a *Assembler) Scenes(storyline, characters string) (string, error) {
	return a.withTemplate(core.StageScenes,
		storyline+"\n"+characters+"\n"+ScenesMarker+"\n")
}

// PlacePrefix is the line that introduces a place in prompts and exports.
func PlacePrefix(name string) string {
	return PlaceElement + name
}

// Place prompt for one location of the outline.
func (a *Assembler) Place(storyline, name string) (string, error) {
	return a.withTemplate(core.StagePlace,
		storyline+"\n"+PlacePrefix(name)+"\n"+DescriptionElement)
}

// Dialogue builds the prompt for the 1-based scene of the outline held in
// state.SceneText. Only scenes after the first get the previous beat.
func (a *Assembler) Dialogue(state *story.StoryState, sceneIndex int) (string, error) {
	blocks := SceneBlocks(state.SceneText)
	if sceneIndex < 1 || sceneIndex > len(blocks) {
		return "", core.NewProcessingError(core.StageDialogue, "scene_lookup",
			fmt.Sprintf("scene %d not found in outline of %d scenes", sceneIndex, len(blocks)))
	}

	scene, err := ParseSceneBlock(blocks[sceneIndex-1])
	if err != nil {
		return "", sceneError(sceneIndex, err)
	}

	var b strings.Builder
	b.WriteString(PlaceElement + scene.PlaceName + "\n")
	if desc, ok := state.PlaceDescription(scene.PlaceName); ok {
		first, _, _ := strings.Cut(desc, "\n")
		b.WriteString(DescriptionElement + first + "\n")
	}
	b.WriteString(CharactersElement)
	for _, c := range state.Characters {
		b.WriteString(c.Description + "\n")
	}
	b.WriteString("\n")
	b.WriteString(PlotElement + scene.PlotElement + "\n")
	b.WriteString(SummaryElement + state.Storyline + "\n")
	if sceneIndex > 1 {
		previous, err := ParseSceneBlock(blocks[sceneIndex-2])
		if err != nil {
			return "", sceneError(sceneIndex-1, err)
		}
		b.WriteString(PreviousElement + previous.Beat + "\n")
	}
	b.WriteString(BeatElement + scene.Beat + "\n\n")
	b.WriteString(DialogMarker + "\n\n")

	return a.withTemplate(core.StageDialogue, b.String())
}

// DialogueContinuation extends the dialogue prompt with the dialogue written
// so far, so the model picks up after it.
func (a *Assembler) DialogueContinuation(state *story.StoryState, sceneIndex int, dialogue string) (string, error) {
	base, err := a.Dialogue(state, sceneIndex)
	if err != nil {
		return "", err
	}
	return base + strings.TrimSpace(dialogue) + "\n\n", nil
}

func (a *Assembler) withTemplate(stage core.Stage, body string) (string, error) {
	tmpl, err := a.store.Template(stage)
	if err != nil {
		return "", err
	}
	return tmpl + body, nil
}

func sceneError(index int, err error) error {
	pe := core.NewProcessingError(core.StageDialogue, "scene_parse", fmt.Sprintf("scene %d is malformed", index))
	pe.Cause = err
	return pe
}
