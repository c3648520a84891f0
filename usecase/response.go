package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mlaferte/causerie/domain/entities"
)

// characterLabelPattern matches the positional labels requested from the
// model ("Character 1", "character 2", ...). The 1-based index maps into
// scenario.Characters. Anything else is a fatal schema violation: guessing
// the wrong character would corrupt voice assignment irrecoverably.
var characterLabelPattern = regexp.MustCompile(`(?i)^character\s+(\d+)$`)

type singleResponse struct {
	French  string `json:"french"`
	English string `json:"english"`
	Hint    string `json:"hint"`
}

type characterResponse struct {
	CharacterName string `json:"characterName"`
	French        string `json:"french"`
	English       string `json:"english"`
	Hint          string `json:"hint"`
}

type multiResponse struct {
	CharacterResponses []characterResponse `json:"characterResponses"`
	Hint               string              `json:"hint"`
}

func schemaError(raw string, cause error) *TurnError {
	return &TurnError{Kind: FailSchemaValidation, Step: "parse_response", Raw: raw, Err: cause}
}

// parseTurnResponse validates the raw chat reply against the scenario's
// response contract and returns the ordered character turns plus the
// resolved hint.
func parseTurnResponse(raw string, scenario *entities.Scenario) ([]entities.CharacterTurn, string, error) {
	if scenario.Mode() == entities.ModeMultiCharacter {
		return parseMultiCharacterResponse(raw, scenario)
	}
	return parseSingleCharacterResponse(raw, scenario)
}

func parseSingleCharacterResponse(raw string, scenario *entities.Scenario) ([]entities.CharacterTurn, string, error) {
	var resp singleResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, "", schemaError(raw, err)
	}
	if strings.TrimSpace(resp.French) == "" || strings.TrimSpace(resp.English) == "" {
		return nil, "", schemaError(raw, fmt.Errorf("french and english are required"))
	}

	turn := entities.CharacterTurn{French: resp.French, English: resp.English}
	if scenario.Mode() == entities.ModeSingleCharacter {
		// The hint is optional in free conversation but part of the
		// contract in scenario mode.
		if strings.TrimSpace(resp.Hint) == "" {
			return nil, "", schemaError(raw, fmt.Errorf("hint is required in scenario mode"))
		}
		turn.Character = scenario.Characters[0]
	}
	return []entities.CharacterTurn{turn}, resp.Hint, nil
}

func parseMultiCharacterResponse(raw string, scenario *entities.Scenario) ([]entities.CharacterTurn, string, error) {
	var resp multiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, "", schemaError(raw, err)
	}
	if len(resp.CharacterResponses) == 0 {
		return nil, "", schemaError(raw, fmt.Errorf("characterResponses is empty"))
	}

	turns := make([]entities.CharacterTurn, 0, len(resp.CharacterResponses))
	for _, cr := range resp.CharacterResponses {
		character, err := resolveCharacterLabel(cr.CharacterName, scenario)
		if err != nil {
			return nil, "", schemaError(raw, err)
		}
		if strings.TrimSpace(cr.French) == "" || strings.TrimSpace(cr.English) == "" {
			return nil, "", schemaError(raw, fmt.Errorf("empty text for %q", cr.CharacterName))
		}
		turns = append(turns, entities.CharacterTurn{
			Character: character,
			French:    cr.French,
			English:   cr.English,
		})
	}

	hint := resp.Hint
	if hint == "" {
		// Fall back to the last character's own hint.
		for i := len(resp.CharacterResponses) - 1; i >= 0 && hint == ""; i-- {
			hint = resp.CharacterResponses[i].Hint
		}
	}
	return turns, hint, nil
}

// resolveCharacterLabel maps a positional label onto the scenario's
// character list. Out-of-range indexes and unparsable labels are fatal.
func resolveCharacterLabel(label string, scenario *entities.Scenario) (entities.Character, error) {
	m := characterLabelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return entities.Character{}, fmt.Errorf("unrecognized character label %q", label)
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return entities.Character{}, fmt.Errorf("unrecognized character label %q", label)
	}
	character, ok := scenario.CharacterAt(index)
	if !ok {
		return entities.Character{}, fmt.Errorf("character label %q out of range (%d characters)", label, len(scenario.Characters))
	}
	return character, nil
}

// mergeAdjacentTurns collapses consecutive entries by the same character
// into one, joining their texts with a single space. Only adjacent repeats
// merge; the same character speaking again after someone else keeps a
// separate entry and a separate synthesis call. One TTS call per
// contiguous block is cheaper and avoids an audible join between two
// separately synthesized clips of the same voice.
func mergeAdjacentTurns(turns []entities.CharacterTurn) []entities.CharacterTurn {
	if len(turns) < 2 {
		return turns
	}
	merged := make([]entities.CharacterTurn, 0, len(turns))
	for _, turn := range turns {
		if n := len(merged); n > 0 && merged[n-1].Character.ID == turn.Character.ID {
			merged[n-1].French += " " + turn.French
			merged[n-1].English += " " + turn.English
			continue
		}
		merged = append(merged, turn)
	}
	return merged
}

// flattenAssistantText builds the single history string for the assistant
// turn: every character's french and english concatenated in order.
func flattenAssistantText(turns []entities.CharacterTurn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.French+" "+t.English)
	}
	return strings.Join(parts, " ")
}
