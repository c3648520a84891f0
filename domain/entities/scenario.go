package entities

import "errors"

// ScenarioMode describes how many characters take part in a scenario.
type ScenarioMode string

const (
	ModeFreeConversation ScenarioMode = "free_conversation"
	ModeSingleCharacter  ScenarioMode = "single_character"
	ModeMultiCharacter   ScenarioMode = "multi_character"
)

// Character is one AI-voiced participant of a scenario.
// Immutable once assigned to a scenario.
type Character struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	VoiceID string `json:"voice_id"`
}

// Scenario describes the current role-play: a free-form narrative and
// zero or more characters. It is immutable for the lifetime of a practice
// session and replaced wholesale when the user changes scenario.
type Scenario struct {
	Description string      `json:"description"`
	Characters  []Character `json:"characters"`
}

// Mode derives the conversation mode from the character count.
func (s *Scenario) Mode() ScenarioMode {
	switch {
	case s == nil || len(s.Characters) == 0:
		return ModeFreeConversation
	case len(s.Characters) == 1:
		return ModeSingleCharacter
	default:
		return ModeMultiCharacter
	}
}

// CharacterAt returns the 1-based indexed character, matching the
// positional "Character N" labels used in structured model output.
func (s *Scenario) CharacterAt(index int) (Character, bool) {
	if s == nil || index < 1 || index > len(s.Characters) {
		return Character{}, false
	}
	return s.Characters[index-1], true
}

// Validate validates the scenario data.
func (s *Scenario) Validate() error {
	if s == nil {
		return errors.New("scenario is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	seen := make(map[string]bool, len(s.Characters))
	for _, c := range s.Characters {
		if c.Name == "" {
			return errors.New("character name is required")
		}
		if c.VoiceID == "" {
			return errors.New("character voice is required")
		}
		if seen[c.ID] {
			return errors.New("duplicate character id")
		}
		seen[c.ID] = true
	}
	return nil
}
