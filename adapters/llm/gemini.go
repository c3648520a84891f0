package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mlaferte/causerie/domain/repositories"
)

const (
	defaultChatModel          = "gemini-2.0-flash"
	defaultTranscriptionModel = "gemini-2.0-flash"
)

const transcriptionPrompt = "Transcribe this audio recording verbatim. " +
	"Return only the spoken words, nothing else."

// Gemini implements both the ChatModel and Transcriber interfaces using
// Google's Gemini API.
type Gemini struct {
	client *genai.Client
	logger *zap.Logger
	config GeminiConfig
}

// Ensure Gemini satisfies both capability contracts.
var (
	_ repositories.ChatModel   = (*Gemini)(nil)
	_ repositories.Transcriber = (*Gemini)(nil)
)

// NewGemini creates a new Gemini adapter. The API key is read from
// GEMINI_API_KEY.
func NewGemini(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	config = config.withDefaults(logger)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		logger: logger,
		config: config,
	}, nil
}

// NewSession creates a chat session seeded with the system instruction and
// the full prior history.
func (g *Gemini) NewSession(ctx context.Context, systemInstruction string, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	return newGeminiChatSession(g.client, g.config, g.logger, systemInstruction, history), nil
}

// Transcribe sends the audio inline to the transcription model with a
// verbatim instruction and returns the recognized text.
func (g *Gemini) Transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("audio data is empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcriptionPrompt),
		genai.NewPartFromBytes(audio.Data, audio.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.config.TranscriptionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	text := responseText(response)
	g.logger.Info("Audio transcribed",
		zap.String("mimeType", audio.MIMEType),
		zap.Int("audioBytes", len(audio.Data)),
		zap.Int("textLength", len(text)))
	return text, nil
}

// responseText extracts and concatenates the text parts of a response.
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
