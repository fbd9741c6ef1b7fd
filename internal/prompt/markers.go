// Package prompt holds the few-shot templates and builds the prompt for each
// generation stage.
//
// The markers below are part of the contract with the model: the templates
// show them in every example and the extractors look for them in the output.
package prompt

const (
	EndMarker  = "<end>"
	StopMarker = "<stop>"

	CharacterMarker   = "<character>"
	DescriptionMarker = "<description>"
	ScenesMarker      = "<scenes>"
	DialogMarker      = "<dialog>"
)

const (
	ExampleElement     = "Example "
	TitleElement       = "Title: "
	CharactersElement  = "Characters: "
	DescriptionElement = "Description: "
	PlaceElement       = "Place: "
	PlotElement        = "Plot element: "
	SummaryElement     = "Summary: "
	PreviousElement    = "Previous beat: "
	BeatElement        = "Beat: "
)

// PlaceToken separates scenes in the flattened scene outline.
const PlaceToken = "Place:"

// StopSequences are sent with every completion request.
var StopSequences = []string{StopMarker, EndMarker + "\n\n\n", EndMarker}
