package usecase

import (
	"fmt"
	"strings"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
)

const basePrompt = "You are a friendly French conversation partner helping a learner practice spoken French. " +
	"Reply in simple, natural French appropriate to the learner's level, and always provide an English translation. " +
	"Keep replies short enough to be spoken aloud."

// systemInstructionFor builds the session system instruction for the
// active scenario. Multi-character scenarios ask the model to label each
// reply positionally ("Character N") because free-text name matching
// against model output is unreliable.
func systemInstructionFor(scenario *entities.Scenario) string {
	if scenario == nil || scenario.Mode() == entities.ModeFreeConversation {
		return basePrompt +
			" Respond with JSON: {\"french\": ..., \"english\": ..., \"hint\": ...}. " +
			"The hint is an optional short suggestion, in English, for what the learner could say next."
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(" You are role-playing the following scenario: ")
	b.WriteString(scenario.Description)
	b.WriteString("\n")

	if scenario.Mode() == entities.ModeSingleCharacter {
		c := scenario.Characters[0]
		fmt.Fprintf(&b, "You play %s (%s). Stay in character.\n", c.Name, c.Role)
		b.WriteString("Respond with JSON: {\"french\": ..., \"english\": ..., \"hint\": ...}. " +
			"The hint is a required short English suggestion for what the learner could say next.")
		return b.String()
	}

	b.WriteString("You play every character listed below. Refer to each strictly by its positional label:\n")
	for i, c := range scenario.Characters {
		fmt.Fprintf(&b, "Character %d: %s, %s\n", i+1, c.Name, c.Role)
	}
	b.WriteString("Respond with JSON: {\"characterResponses\": [{\"characterName\": \"Character N\", " +
		"\"french\": ..., \"english\": ..., \"hint\": ...}], \"hint\": ...}. " +
		"Only characters who would naturally speak should respond, in conversational order.")
	return b.String()
}

// responseShapeFor selects the structured-output contract from the
// character count alone.
func responseShapeFor(scenario *entities.Scenario) repositories.ResponseShape {
	switch scenario.Mode() {
	case entities.ModeSingleCharacter:
		return repositories.ResponseShape{Kind: repositories.ShapeSingleCharacter, CharacterCount: 1}
	case entities.ModeMultiCharacter:
		return repositories.ResponseShape{
			Kind:           repositories.ShapeMultiCharacter,
			CharacterCount: len(scenario.Characters),
		}
	default:
		return repositories.ResponseShape{Kind: repositories.ShapeFreeform}
	}
}
