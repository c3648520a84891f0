package llm

import (
	"testing"

	"google.golang.org/genai"

	"github.com/mlaferte/causerie/domain/repositories"
)

func TestHistoryConversionRoundTrip(t *testing.T) {
	messages := []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "Bonjour."},
		{Role: repositories.AssistantRole, Content: "Salut ! Hi!"},
		{Role: repositories.UserRole, Content: "Ça va ?"},
	}

	contents := toGeminiHistory(messages)
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("Expected user role, got %q", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("Expected model role for assistant message, got %q", contents[1].Role)
	}

	back := fromGeminiHistory(contents)
	if len(back) != 3 {
		t.Fatalf("Expected 3 messages back, got %d", len(back))
	}
	for i := range messages {
		if back[i].Role != messages[i].Role {
			t.Errorf("Message %d: expected role %s, got %s", i, messages[i].Role, back[i].Role)
		}
		if back[i].Content != messages[i].Content {
			t.Errorf("Message %d: expected content %q, got %q", i, messages[i].Content, back[i].Content)
		}
	}
}

func TestFromGeminiHistorySkipsNonTextParts(t *testing.T) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes([]byte{1, 2, 3}, "audio/webm"),
		}, genai.RoleUser),
		genai.NewContentFromText("Salut !", genai.RoleModel),
	}

	messages := fromGeminiHistory(contents)
	if len(messages) != 1 {
		t.Fatalf("Expected audio-only content skipped, got %d messages", len(messages))
	}
	if messages[0].Role != repositories.AssistantRole || messages[0].Content != "Salut !" {
		t.Errorf("Expected the model text message, got %+v", messages[0])
	}
}
