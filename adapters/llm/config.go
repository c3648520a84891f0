package llm

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultTemperature    = 0.7
	defaultTopP           = 0.95
	defaultTopK           = 40
	defaultMaxTokens      = 2048
	defaultTimeoutSeconds = 60
)

// GeminiConfig holds configuration for the Gemini adapter.
// All fields are optional; zero values fall back to defaults.
type GeminiConfig struct {
	ChatModel          string
	TranscriptionModel string
	Temperature        float32
	TopP               float32
	TopK               float32
	MaxOutputTokens    int
	TimeoutSeconds     int
}

// ValidateGeminiConfig validates the GeminiConfig ranges.
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TopP != 0 && (config.TopP < 0 || config.TopP > 1) {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

func (c GeminiConfig) withDefaults(logger *zap.Logger) GeminiConfig {
	if c.ChatModel == "" {
		c.ChatModel = defaultChatModel
		logger.Info("Using default chat model", zap.String("model", c.ChatModel))
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = defaultTranscriptionModel
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.TopP == 0 {
		c.TopP = defaultTopP
	}
	if c.TopK == 0 {
		c.TopK = defaultTopK
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = defaultMaxTokens
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return c
}

// NewGeminiConfigFromEnv creates a GeminiConfig from environment
// variables.
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		ChatModel:          os.Getenv("GEMINI_CHAT_MODEL"),
		TranscriptionModel: os.Getenv("GEMINI_TRANSCRIPTION_MODEL"),
	}
	if v := os.Getenv("GEMINI_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil && t >= 0 && t <= 2 {
			config.Temperature = float32(t)
		}
	}
	if v := os.Getenv("GEMINI_MAX_OUTPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxOutputTokens = n
		}
	}
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.TimeoutSeconds = n
		}
	}
	return config
}
