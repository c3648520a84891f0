package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/repositories"
)

// MockChatModel is a local stand-in for Gemini used when no API key is
// configured. It transcribes every utterance to a fixed phrase and replies
// with well-formed canned JSON for whichever shape is requested.
type MockChatModel struct {
	logger *zap.Logger
}

var (
	_ repositories.ChatModel   = (*MockChatModel)(nil)
	_ repositories.Transcriber = (*MockChatModel)(nil)
)

// NewMockChatModel creates a mock chat model.
func NewMockChatModel(logger *zap.Logger) *MockChatModel {
	return &MockChatModel{logger: logger}
}

func (m *MockChatModel) NewSession(ctx context.Context, systemInstruction string, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	m.logger.Info("Mock chat session created", zap.Int("seededEntries", len(history)))
	return &mockChatSession{history: append([]repositories.ChatMessage(nil), history...)}, nil
}

func (m *MockChatModel) Transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	m.logger.Info("Mock transcription", zap.Int("audioBytes", len(audio.Data)))
	return "Bonjour, je voudrais pratiquer mon français.", nil
}

type mockChatSession struct {
	history []repositories.ChatMessage
}

func (s *mockChatSession) SendAudio(ctx context.Context, audio repositories.AudioInput, shape repositories.ResponseShape) (string, error) {
	var reply string
	switch shape.Kind {
	case repositories.ShapeMultiCharacter:
		reply = fmt.Sprintf(`{"characterResponses":[{"characterName":"Character 1","french":"Bonjour !","english":"Hello!"},{"characterName":"Character %d","french":"Bienvenue.","english":"Welcome."}],"hint":"Say what you would like."}`,
			shape.CharacterCount)
	default:
		reply = `{"french":"Très bien, continuons.","english":"Very well, let's continue.","hint":"Ask a question."}`
	}
	s.history = append(s.history,
		repositories.ChatMessage{Role: repositories.UserRole, Content: "[audio]"},
		repositories.ChatMessage{Role: repositories.AssistantRole, Content: reply},
	)
	return reply, nil
}

func (s *mockChatSession) History() []repositories.ChatMessage {
	return append([]repositories.ChatMessage(nil), s.history...)
}
