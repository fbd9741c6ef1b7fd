// Package render lays a story out as a plain-text script.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/vampirenirmal/dramaturg/internal/story"
)

const (
	divider = "\n\n====\n\n"
	byline  = "Author: Written by ________ using dramaturg"
)

// Script renders the title page, the scene list and then every scene with
// its heading, the description of a place the first time it appears, the
// characters not introduced yet and the dialogue. Missing places and
// dialogue render as nothing.
func Script(s *story.StoryState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", s.Title)
	b.WriteString(byline + "\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "The script is based on the storyline:\n%s\n\n", s.Storyline)

	for i, scene := range s.Scenes {
		fmt.Fprintf(&b, "Scene %d\n%s\n\n", i+1, sceneSummary(scene))
	}
	b.WriteString(divider)

	seenPlaces := make(map[string]bool)
	introduced := false
	for i, scene := range s.Scenes {
		index := i + 1
		location := scene.Location()
		fmt.Fprintf(&b, "INT/EXT. %s - Scene %d\n\n", location, index)

		if !seenPlaces[location] {
			seenPlaces[location] = true
			if desc, ok := s.PlaceDescription(location); ok {
				b.WriteString(desc + "\n\n")
			}
		}

		if !introduced {
			introduced = true
			for _, c := range s.Characters {
				b.WriteString(c.Description + "\n")
			}
		}

		b.WriteString("\n" + s.Dialogue[index])
		b.WriteString(divider)
	}

	return b.String()
}

// Write renders s to w.
func Write(w io.Writer, s *story.StoryState) error {
	_, err := io.WriteString(w, Script(s))
	return err
}

func sceneSummary(d story.SceneDescriptor) string {
	lines := []string{"Place: " + d.PlaceName}
	if d.PlotElement != "" {
		lines = append(lines, "Plot element: "+d.PlotElement)
	}
	if d.Beat != "" {
		lines = append(lines, "Beat: "+d.Beat)
	}
	return strings.Join(lines, "\n")
}
