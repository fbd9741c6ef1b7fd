package core

// Stage is one phase of script generation.
type Stage string

const (
	StageTitle      Stage = "title"
	StageCharacters Stage = "characters"
	StageScenes     Stage = "scenes"
	StagePlace      Stage = "place"
	StageDialogue   Stage = "dialogue"
)

// Stages lists every stage in the order a script is built.
var Stages = []Stage{StageTitle, StageCharacters, StageScenes, StagePlace, StageDialogue}

func (s Stage) String() string {
	return string(s)
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}
