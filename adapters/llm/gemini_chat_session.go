package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mlaferte/causerie/domain/repositories"
)

// GeminiChatSession implements the ChatSession interface. The system
// instruction and full seed history are fixed at creation; each SendAudio
// call replays them to the model together with the rolling in-session
// history, constrained to the requested response shape.
type GeminiChatSession struct {
	client       *genai.Client
	logger       *zap.Logger
	config       GeminiConfig
	systemPrompt string
	history      []*genai.Content
}

func newGeminiChatSession(
	client *genai.Client,
	config GeminiConfig,
	logger *zap.Logger,
	systemInstruction string,
	history []repositories.ChatMessage,
) *GeminiChatSession {
	return &GeminiChatSession{
		client:       client,
		logger:       logger,
		config:       config,
		systemPrompt: systemInstruction,
		history:      toGeminiHistory(history),
	}
}

// SendAudio sends the user's audio into the session and returns the raw
// reply text. Transient request errors are retried a bounded number of
// times; an exhausted retry budget surfaces the error to the caller
// instead of substituting a canned reply, since the orchestrator must
// treat a missing reply as fatal for the turn.
func (s *GeminiChatSession) SendAudio(ctx context.Context, audio repositories.AudioInput, shape repositories.ResponseShape) (string, error) {
	var contents []*genai.Content

	// System instruction first, then the seeded and in-session history.
	contents = append(contents, genai.NewContentFromText(s.systemPrompt, genai.RoleUser))
	contents = append(contents, s.history...)

	userContent := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(audio.Data, audio.MIMEType),
	}, genai.RoleUser)
	contents = append(contents, userContent)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(s.config.Temperature),
		TopP:            genai.Ptr(s.config.TopP),
		TopK:            genai.Ptr(s.config.TopK),
		MaxOutputTokens: int32(s.config.MaxOutputTokens),
	}
	if schema := responseSchemaFor(shape); schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.config.TimeoutSeconds)*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = s.client.Models.GenerateContent(ctx, s.config.ChatModel, contents, config)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		s.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < 2 {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	responseStr := responseText(response)
	if responseStr == "" {
		return "", nil
	}

	// Record the exchange so a follow-up call carries the rolling
	// context. The audio itself is not replayed on later calls.
	s.history = append(s.history,
		userContent,
		genai.NewContentFromText(responseStr, genai.RoleModel),
	)

	s.logger.Info("Chat session message processed",
		zap.Int("historyLength", len(s.history)),
		zap.Int("responseLength", len(responseStr)))

	return responseStr, nil
}

// History returns the session's accumulated messages.
func (s *GeminiChatSession) History() []repositories.ChatMessage {
	return fromGeminiHistory(s.history)
}

func toGeminiHistory(messages []repositories.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == repositories.AssistantRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

func fromGeminiHistory(contents []*genai.Content) []repositories.ChatMessage {
	var messages []repositories.ChatMessage
	for _, content := range contents {
		role := repositories.UserRole
		if content.Role == genai.RoleModel {
			role = repositories.AssistantRole
		}

		var text string
		for _, part := range content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		if text != "" {
			messages = append(messages, repositories.ChatMessage{Role: role, Content: text})
		}
	}
	return messages
}
