package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/internal/audio"
)

// MockTTS is a local stand-in synthesizer producing a short silent WAV
// clip per request. Used when no provider key is configured.
type MockTTS struct {
	logger *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*MockTTS)(nil)

// NewMockTTS creates a mock synthesizer.
func NewMockTTS(logger *zap.Logger) *MockTTS {
	return &MockTTS{logger: logger}
}

func (m *MockTTS) Synthesize(ctx context.Context, req repositories.SpeechRequest) (*entities.AudioClip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 200ms of silence at 16 kHz.
	wav, err := audio.EncodeWAVPCM16LE(make([]byte, 16000*2/5), 16000)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Mock speech synthesized",
		zap.String("voice", req.VoiceID),
		zap.Int("textLength", len(req.Text)))
	return entities.NewAudioClip(wav, "audio/wav"), nil
}
