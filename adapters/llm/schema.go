package llm

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/mlaferte/causerie/domain/repositories"
)

// responseSchemaFor builds the JSON schema the model's reply must satisfy
// for the given response shape. Freeform and single-character scenarios
// share the flat {french, english, hint} shape and differ only in whether
// the hint is required; multi-character scenarios get the
// characterResponses array with positional labels constrained to an enum
// so the model cannot invent names.
func responseSchemaFor(shape repositories.ResponseShape) *genai.Schema {
	switch shape.Kind {
	case repositories.ShapeFreeform:
		return singleSchema(false)
	case repositories.ShapeSingleCharacter:
		return singleSchema(true)
	case repositories.ShapeMultiCharacter:
		return multiSchema(shape.CharacterCount)
	default:
		return nil
	}
}

func singleSchema(hintRequired bool) *genai.Schema {
	required := []string{"french", "english"}
	if hintRequired {
		required = append(required, "hint")
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"french":  {Type: genai.TypeString, Description: "The reply in French"},
			"english": {Type: genai.TypeString, Description: "English translation of the reply"},
			"hint":    {Type: genai.TypeString, Description: "Short English suggestion for what the learner could say next"},
		},
		Required: required,
	}
}

func multiSchema(characterCount int) *genai.Schema {
	labels := make([]string, characterCount)
	for i := range labels {
		labels[i] = fmt.Sprintf("Character %d", i+1)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"characterResponses": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"characterName": {
							Type:        genai.TypeString,
							Enum:        labels,
							Description: "Positional label of the speaking character",
						},
						"french":  {Type: genai.TypeString},
						"english": {Type: genai.TypeString},
						"hint":    {Type: genai.TypeString},
					},
					Required: []string{"characterName", "french", "english"},
				},
			},
			"hint": {Type: genai.TypeString},
		},
		Required: []string{"characterResponses"},
	}
}
