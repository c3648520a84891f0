package usecase

import (
	"fmt"
	"testing"

	"github.com/mlaferte/causerie/domain/entities"
)

func TestParseFreeConversationResponse(t *testing.T) {
	raw := `{"french":"Bonjour !","english":"Hello!","hint":"Say your name."}`

	turns, hint, err := parseTurnResponse(raw, nil)
	if err != nil {
		t.Fatalf("parseTurnResponse failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Character.ID != "" {
		t.Errorf("Expected no character in free conversation, got %q", turns[0].Character.ID)
	}
	if hint != "Say your name." {
		t.Errorf("Expected hint, got %q", hint)
	}
}

func TestParseSingleCharacterResponse(t *testing.T) {
	scenario := &entities.Scenario{
		Description: "Au café",
		Characters:  []entities.Character{{ID: "c1", Name: "Pierre", Role: "waiter", VoiceID: "Puck"}},
	}
	raw := `{"french":"Que désirez-vous ?","english":"What would you like?","hint":"Order a coffee."}`

	turns, _, err := parseTurnResponse(raw, scenario)
	if err != nil {
		t.Fatalf("parseTurnResponse failed: %v", err)
	}
	if turns[0].Character.ID != "c1" {
		t.Errorf("Expected the scenario character, got %q", turns[0].Character.ID)
	}
}

func TestParseSingleCharacterResponseRequiresHint(t *testing.T) {
	scenario := &entities.Scenario{
		Description: "Au café",
		Characters:  []entities.Character{{ID: "c1", Name: "Pierre", Role: "waiter", VoiceID: "Puck"}},
	}

	// Missing hint violates the scenario-mode contract.
	raw := `{"french":"Que désirez-vous ?","english":"What would you like?"}`
	_, _, err := parseTurnResponse(raw, scenario)
	kind, ok := FailureKindOf(err)
	if !ok || kind != FailSchemaValidation {
		t.Errorf("Expected schema_validation for missing hint in scenario mode, got %v", err)
	}

	// The same reply without a scenario is valid: hint is optional in
	// free conversation.
	if _, _, err := parseTurnResponse(raw, nil); err != nil {
		t.Errorf("Expected free-conversation reply without hint to pass, got %v", err)
	}
}

func TestParseSingleResponseRequiresBothTexts(t *testing.T) {
	cases := []string{
		`{"french":"","english":"Hello!"}`,
		`{"french":"Bonjour !","english":"  "}`,
		`not json`,
	}
	for _, raw := range cases {
		_, _, err := parseTurnResponse(raw, nil)
		kind, ok := FailureKindOf(err)
		if !ok || kind != FailSchemaValidation {
			t.Errorf("Expected schema_validation for %q, got %v", raw, err)
		}
	}
}

func TestResolveCharacterLabelTotality(t *testing.T) {
	scenario := threeCharacterScenario()

	// Every in-range positional label resolves.
	for i := 1; i <= 3; i++ {
		character, err := resolveCharacterLabel(fmt.Sprintf("Character %d", i), scenario)
		if err != nil {
			t.Errorf("Expected label %d to resolve, got %v", i, err)
		}
		if character.ID != scenario.Characters[i-1].ID {
			t.Errorf("Label %d resolved to wrong character %q", i, character.ID)
		}
	}

	// Case-insensitive with surrounding whitespace.
	if _, err := resolveCharacterLabel("  character 2 ", scenario); err != nil {
		t.Errorf("Expected lenient label matching, got %v", err)
	}

	// Everything else is rejected rather than guessed.
	rejected := []string{"Character 0", "Character 4", "Baker", "Marie", "Character", ""}
	for _, label := range rejected {
		if _, err := resolveCharacterLabel(label, scenario); err == nil {
			t.Errorf("Expected label %q to be rejected", label)
		}
	}
}

func TestParseMultiCharacterResponseHintFallback(t *testing.T) {
	scenario := threeCharacterScenario()
	raw := `{"characterResponses":[` +
		`{"characterName":"Character 1","french":"Bonjour.","english":"Hello.","hint":"Greet back."},` +
		`{"characterName":"Character 2","french":"Salut.","english":"Hi.","hint":"Ask a price."}` +
		`]}`

	_, hint, err := parseTurnResponse(raw, scenario)
	if err != nil {
		t.Fatalf("parseTurnResponse failed: %v", err)
	}
	// No top-level hint: the last character's hint wins.
	if hint != "Ask a price." {
		t.Errorf("Expected last character hint, got %q", hint)
	}
}

func TestParseMultiCharacterResponseEmptyList(t *testing.T) {
	_, _, err := parseTurnResponse(`{"characterResponses":[]}`, threeCharacterScenario())
	kind, ok := FailureKindOf(err)
	if !ok || kind != FailSchemaValidation {
		t.Errorf("Expected schema_validation for empty list, got %v", err)
	}
}

func TestMergeAdjacentTurnsOnlyMergesNeighbors(t *testing.T) {
	a := entities.Character{ID: "a", VoiceID: "Puck"}
	b := entities.Character{ID: "b", VoiceID: "Leda"}
	turns := []entities.CharacterTurn{
		{Character: a, French: "Un.", English: "One."},
		{Character: a, French: "Deux.", English: "Two."},
		{Character: b, French: "Trois.", English: "Three."},
		{Character: a, French: "Quatre.", English: "Four."},
	}

	merged := mergeAdjacentTurns(turns)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 merged turns, got %d", len(merged))
	}
	if merged[0].French != "Un. Deux." {
		t.Errorf("Expected adjacent merge with single space, got %q", merged[0].French)
	}
	// The same character speaking after someone else stays separate.
	if merged[2].French != "Quatre." {
		t.Errorf("Expected non-adjacent repeat kept separate, got %q", merged[2].French)
	}

	// Merging is idempotent.
	again := mergeAdjacentTurns(merged)
	if len(again) != len(merged) {
		t.Errorf("Expected merge to be idempotent, got %d then %d", len(merged), len(again))
	}
}

func TestFlattenAssistantText(t *testing.T) {
	turns := []entities.CharacterTurn{
		{French: "Bonjour.", English: "Hello."},
		{French: "Ça va ?", English: "How are you?"},
	}
	got := flattenAssistantText(turns)
	want := "Bonjour. Hello. Ça va ? How are you?"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
