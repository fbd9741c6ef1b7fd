// Package extract turns raw model output into the values each generation
// stage stores. The functions are pure and tolerate a missing end marker.
// Applied to their own output they return it unchanged.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/prompt"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

// ErrNoScenes is the cause of the processing error for empty scene output.
var ErrNoScenes = errors.New("no scenes generated")

var placePattern = regexp.MustCompile(`Place: (.*).\n`)

// beforeEnd drops everything from the end marker on.
func beforeEnd(text string) string {
	before, _, _ := strings.Cut(text, prompt.EndMarker)
	return before
}

// Title cleans a title completion.
//
//	Title("  A Tale of Two Cities. Example 2. more") == "A Tale of Two Cities"
func Title(text string) string {
	text = beforeEnd(strings.TrimSpace(text))
	if _, after, found := strings.Cut(text, prompt.TitleElement); found {
		text = after
	}
	text, _, _ = strings.Cut(text, prompt.ExampleElement)
	// Every trailing period goes, not just one, so a cleaned title cleans to
	// itself.
	return strings.TrimRight(strings.TrimSpace(text), ".")
}

// Characters parses a characters completion into records. Output of the form
// "<character> Name <description> Description" is split on the markers and
// entries without a description are dropped. Text without character markers
// is read as "Name: Description" lines.
func Characters(text string) []story.Character {
	text = beforeEnd(strings.ReplaceAll(text, prompt.StopMarker, ""))

	if !strings.Contains(text, prompt.CharacterMarker) {
		return characterLines(text)
	}

	var chars []story.Character
	for _, segment := range strings.Split(text, prompt.CharacterMarker) {
		segment = strings.TrimSpace(segment)
		name, desc, found := strings.Cut(segment, prompt.DescriptionMarker)
		if !found {
			continue
		}
		if next := strings.Index(desc, prompt.DescriptionMarker); next >= 0 {
			desc = desc[:next]
		}
		chars = append(chars, story.Character{
			Name:        oneLine(name),
			Description: oneLine(desc),
		})
	}
	return chars
}

// oneLine keeps a record on a single line so the "Name: Description" form
// reads back the same.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func characterLines(text string) []story.Character {
	var chars []story.Character
	for _, line := range strings.Split(text, "\n") {
		name, desc, found := strings.Cut(strings.TrimSpace(line), ": ")
		if !found {
			continue
		}
		chars = append(chars, story.Character{
			Name:        oneLine(name),
			Description: oneLine(desc),
		})
	}
	return chars
}

// CharacterList is Characters rendered back as "Name: Description" lines,
// the form the scenes prompt and the safety gate consume.
func CharacterList(text string) string {
	chars := Characters(text)
	lines := make([]string, 0, len(chars))
	for _, c := range chars {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// Scenes returns the scene outline from a scenes completion. Empty output is
// a processing error: no scene means nothing for dialogue to build on.
func Scenes(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		err := core.NewProcessingError(core.StageScenes, "extract_scenes", "completion is empty")
		err.Cause = ErrNoScenes
		return "", err
	}
	text = beforeEnd(text)
	if _, after, found := strings.Cut(text, prompt.ScenesMarker); found {
		// An echoed marker starts drifted text.
		text, _, _ = strings.Cut(after, prompt.ScenesMarker)
	}
	return strings.TrimSpace(text), nil
}

// ParseScenes reads an outline into one descriptor per place token, in order.
// A block that cannot be fully parsed still yields a descriptor with the
// fields it has; the dialogue stage reports those when it needs them.
func ParseScenes(outline string) ([]story.SceneDescriptor, error) {
	blocks := prompt.SceneBlocks(outline)
	if len(blocks) == 0 {
		err := core.NewProcessingError(core.StageScenes, "parse_scenes", "outline has no place markers")
		err.Cause = ErrNoScenes
		return nil, err
	}
	scenes := make([]story.SceneDescriptor, 0, len(blocks))
	for _, block := range blocks {
		d, _ := prompt.ParseSceneBlock(block)
		scenes = append(scenes, d)
	}
	return scenes, nil
}

// PlaceNames lists the place of every scene in the outline, in order and with
// repeats.
//
//	PlaceNames("Place: The Pub.\nPlot element: Beginning.\nPlace: The Office.\n")
//	  == []string{"The Pub", "The Office"}
func PlaceNames(outline string) []string {
	var names []string
	for _, m := range placePattern.FindAllStringSubmatch(beforeEnd(outline), -1) {
		names = append(names, m[1])
	}
	return names
}

// Place formats a generated description under its place prefix.
func Place(prefix, description string) string {
	return strings.TrimSpace(prefix) + "\n" + description
}

// PlaceDescription cleans a place completion.
func PlaceDescription(text string) (string, error) {
	desc := strings.TrimSpace(beforeEnd(strings.ReplaceAll(text, prompt.StopMarker, "")))
	if desc == "" {
		return "", core.NewProcessingError(core.StagePlace, "extract_place", "completion is empty")
	}
	return desc, nil
}

// Dialogue cleans a dialogue completion.
func Dialogue(text string) (string, error) {
	dialogue := strings.TrimSpace(beforeEnd(strings.ReplaceAll(text, prompt.StopMarker, "")))
	if dialogue == "" {
		return "", core.NewProcessingError(core.StageDialogue, "extract_dialogue", "completion is empty")
	}
	return dialogue, nil
}
