// Package story holds the script under construction: the storyline typed in
// by the user and everything the generation stages have accepted so far.
package story

import "strings"

// Character is one entry of the characters stage.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// String renders the character the way the prompts expect it.
func (c Character) String() string {
	return c.Name + ": " + c.Description
}

// SceneDescriptor is one scene of the outline. Scenes are numbered from 1.
type SceneDescriptor struct {
	PlaceName   string `json:"place_name"`
	PlotElement string `json:"plot_element"`
	Beat        string `json:"beat"`
}

// Location is the place name without the period that ends it in the outline.
func (d SceneDescriptor) Location() string {
	return strings.TrimSuffix(strings.TrimSpace(d.PlaceName), ".")
}

// Place is a generated location description.
type Place struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StoryState is built stage by stage. A stage that fails leaves its field
// untouched; nothing is ever rolled back.
type StoryState struct {
	Storyline  string            `json:"storyline"`
	Title      string            `json:"title,omitempty"`
	Characters []Character       `json:"characters,omitempty"`
	SceneText  string            `json:"scene_text,omitempty"`
	Scenes     []SceneDescriptor `json:"scenes,omitempty"`
	Places     []Place           `json:"places,omitempty"`
	Dialogue   map[int]string    `json:"dialogue,omitempty"`
}

// NewStoryState starts an empty story from a storyline.
func NewStoryState(storyline string) *StoryState {
	return &StoryState{
		Storyline: strings.TrimSpace(storyline),
		Dialogue:  make(map[int]string),
	}
}

// CharactersText flattens the characters into "Name: Description" lines.
func (s *StoryState) CharactersText() string {
	lines := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// Scene returns the 1-based scene, if present.
func (s *StoryState) Scene(index int) (SceneDescriptor, bool) {
	if index < 1 || index > len(s.Scenes) {
		return SceneDescriptor{}, false
	}
	return s.Scenes[index-1], true
}

// SetPlace adds a place or overwrites the description of an existing one.
func (s *StoryState) SetPlace(p Place) {
	for i := range s.Places {
		if s.Places[i].Name == p.Name {
			s.Places[i] = p
			return
		}
	}
	s.Places = append(s.Places, p)
}

// PlaceDescription looks a place up by the name used in the scene outline.
// Scene lines end the name with a period, stored places do not, so a single
// trailing period is ignored. Failing an exact match, the name minus its last
// character is searched for inside the stored names: outline names are
// captured one character short when the scene line has no period. Absence is
// a legal state.
func (s *StoryState) PlaceDescription(name string) (string, bool) {
	key := strings.TrimSuffix(strings.TrimSpace(name), ".")
	if key == "" {
		return "", false
	}
	for _, p := range s.Places {
		if p.Name == key {
			return p.Description, true
		}
	}
	runes := []rune(key)
	if len(runes) < 2 {
		return "", false
	}
	stem := string(runes[:len(runes)-1])
	for _, p := range s.Places {
		if strings.Contains(p.Name, stem) {
			return p.Description, true
		}
	}
	return "", false
}

// SetDialogue stores the dialogue of a 1-based scene.
func (s *StoryState) SetDialogue(index int, text string) {
	if s.Dialogue == nil {
		s.Dialogue = make(map[int]string)
	}
	s.Dialogue[index] = text
}

// DialogueComplete reports whether every scene has dialogue.
func (s *StoryState) DialogueComplete() bool {
	if len(s.Scenes) == 0 {
		return false
	}
	for i := 1; i <= len(s.Scenes); i++ {
		if strings.TrimSpace(s.Dialogue[i]) == "" {
			return false
		}
	}
	return true
}

// MissingDialogue lists the scenes still waiting for dialogue, in order.
func (s *StoryState) MissingDialogue() []int {
	var missing []int
	for i := 1; i <= len(s.Scenes); i++ {
		if strings.TrimSpace(s.Dialogue[i]) == "" {
			missing = append(missing, i)
		}
	}
	return missing
}
