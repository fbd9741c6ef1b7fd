package prompt

import (
	"errors"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/story"
)

var (
	ErrMissingPlace = errors.New("scene has no place name")
	ErrMissingPlot  = errors.New("scene has no plot element line")
	ErrMissingBeat  = errors.New("scene has no beat")
)

// SceneBlocks splits a scene outline on the place token. Block i-1 holds
// scene i; whatever precedes the first token is dropped.
func SceneBlocks(outline string) []string {
	parts := strings.Split(outline, PlaceToken)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}

// ParseSceneBlock reads one block of the outline:
//
//	 A farm on planet Tatooine.
//	Plot element: The Ordinary World.
//	Beat: Luke Skywalker is living a normal and humble life.
//
// The place name keeps the outline's spelling, trailing period included.
func ParseSceneBlock(block string) (story.SceneDescriptor, error) {
	lines := strings.Split(block, "\n")

	var d story.SceneDescriptor
	d.PlaceName = strings.TrimSpace(lines[0])
	if d.PlaceName == "" {
		return d, ErrMissingPlace
	}
	if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
		return d, ErrMissingPlot
	}
	d.PlotElement = strings.TrimPrefix(strings.TrimSpace(lines[1]), PlotElement)

	_, beat, found := strings.Cut(block, BeatElement)
	if !found {
		return d, ErrMissingBeat
	}
	if next := strings.Index(beat, BeatElement); next >= 0 {
		beat = beat[:next]
	}
	d.Beat = strings.TrimSpace(beat)
	return d, nil
}
