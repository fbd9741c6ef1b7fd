package story

import (
	"reflect"
	"testing"
)

func TestPlaceDescription(t *testing.T) {
	s := NewStoryState("A storyline.")
	s.SetPlace(Place{Name: "The Pub", Description: "Dark and loud."})
	s.SetPlace(Place{Name: "The Office of Mr. Smith", Description: "Paper everywhere."})
	s.SetPlace(Place{Name: "The Harbo", Description: "Gulls and rope."})

	tests := []struct {
		name   string
		lookup string
		want   string
		found  bool
	}{
		{"exact", "The Pub", "Dark and loud.", true},
		{"scene line with period", "The Pub.", "Dark and loud.", true},
		{"substring", "The Office", "Paper everywhere.", true},
		{"stored one character short", "The Harbor", "Gulls and rope.", true},
		{"stored short, scene line with period", "The Harbor.", "Gulls and rope.", true},
		{"missing", "The Beach.", "", false},
		{"single character", "X", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.PlaceDescription(tt.lookup)
			if ok != tt.found || got != tt.want {
				t.Errorf("PlaceDescription(%q) = %q, %v; want %q, %v", tt.lookup, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestSetPlaceOverwrites(t *testing.T) {
	s := NewStoryState("x")
	s.SetPlace(Place{Name: "The Pub", Description: "old"})
	s.SetPlace(Place{Name: "The Pub", Description: "new"})

	if len(s.Places) != 1 {
		t.Fatalf("len(Places) = %d, want 1", len(s.Places))
	}
	if s.Places[0].Description != "new" {
		t.Errorf("description = %q, want %q", s.Places[0].Description, "new")
	}
}

func TestCharactersText(t *testing.T) {
	s := NewStoryState("x")
	s.Characters = []Character{
		{Name: "Jerry", Description: "Jerry is in his 30s."},
		{Name: "Lydia", Description: "Lydia is a pilot."},
	}
	want := "Jerry: Jerry is in his 30s.\nLydia: Lydia is a pilot."
	if got := s.CharactersText(); got != want {
		t.Errorf("CharactersText() = %q, want %q", got, want)
	}
}

func TestDialogueTracking(t *testing.T) {
	s := NewStoryState("x")
	if s.DialogueComplete() {
		t.Error("story without scenes should not be complete")
	}

	s.Scenes = []SceneDescriptor{{PlaceName: "A"}, {PlaceName: "B"}, {PlaceName: "C"}}
	s.SetDialogue(2, "JERRY\nHi.")

	if s.DialogueComplete() {
		t.Error("DialogueComplete() = true with two scenes missing")
	}
	if got := s.MissingDialogue(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("MissingDialogue() = %v, want [1 3]", got)
	}

	s.SetDialogue(1, "a")
	s.SetDialogue(3, "b")
	if !s.DialogueComplete() {
		t.Error("DialogueComplete() = false with all scenes written")
	}
}

func TestSceneIndexIsOneBased(t *testing.T) {
	s := NewStoryState("x")
	s.Scenes = []SceneDescriptor{{PlaceName: "first"}, {PlaceName: "second"}}

	if _, ok := s.Scene(0); ok {
		t.Error("Scene(0) should not exist")
	}
	if sc, ok := s.Scene(1); !ok || sc.PlaceName != "first" {
		t.Errorf("Scene(1) = %+v, %v", sc, ok)
	}
	if _, ok := s.Scene(3); ok {
		t.Error("Scene(3) should not exist")
	}
}

func TestNewSession(t *testing.T) {
	sess := NewSession(Credentials{CompletionKey: "k"}, "  storyline  ")
	if sess.ID == "" || len(sess.ShortID()) != 8 {
		t.Errorf("unexpected session id %q", sess.ID)
	}
	if sess.Story.Storyline != "storyline" {
		t.Errorf("storyline = %q", sess.Story.Storyline)
	}
	if sess.Story.Dialogue == nil {
		t.Error("dialogue map not initialised")
	}
}
