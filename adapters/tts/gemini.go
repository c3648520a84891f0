package tts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/internal/audio"
)

const (
	defaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	// Gemini TTS returns raw PCM16LE mono at 24 kHz.
	geminiTTSSampleRate = 24000
)

// GeminiTTS implements the SpeechSynthesizer interface using Gemini's
// speech generation models. The provider returns raw PCM samples, which
// are wrapped in a WAV container so the clip is directly playable.
type GeminiTTS struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.SpeechSynthesizer = (*GeminiTTS)(nil)

// NewGeminiTTS creates a Gemini speech synthesizer. The API key is read
// from GEMINI_API_KEY.
func NewGeminiTTS(ctx context.Context, logger *zap.Logger) (*GeminiTTS, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_TTS_MODEL")
	if model == "" {
		model = defaultGeminiTTSModel
	}

	return &GeminiTTS{client: client, logger: logger, model: model}, nil
}

// Synthesize converts text to speech with the requested prebuilt voice.
func (g *GeminiTTS) Synthesize(ctx context.Context, req repositories.SpeechRequest) (*entities.AudioClip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if req.VoiceID == "" {
		return nil, fmt.Errorf("voice is required")
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: req.VoiceID},
			},
		},
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}

	pcm := inlineAudioData(response)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("speech response contained no audio")
	}

	wav, err := audio.EncodeWAVPCM16LE(pcm, geminiTTSSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV container: %w", err)
	}

	g.logger.Info("Speech synthesized",
		zap.String("voice", req.VoiceID),
		zap.Int("textLength", len(req.Text)),
		zap.Int("audioBytes", len(wav)))

	return entities.NewAudioClip(wav, "audio/wav"), nil
}

func inlineAudioData(response *genai.GenerateContentResponse) []byte {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil
	}
	var data []byte
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			data = append(data, part.InlineData.Data...)
		}
	}
	return data
}
