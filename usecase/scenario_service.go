package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
)

// CharacterSpec is the caller-provided sketch of one scenario character.
type CharacterSpec struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ScenarioService assembles scenarios at setup time: assigning each
// character an unused voice and transcribing spoken scenario descriptions.
// It keeps its own retry buffer so a failed description transcription can
// be resubmitted without re-recording.
type ScenarioService struct {
	transcriber repositories.Transcriber
	assignVoice repositories.VoiceAssigner
	retry       RetryBuffer
	logger      *zap.Logger
}

// NewScenarioService creates a scenario service.
func NewScenarioService(transcriber repositories.Transcriber, assignVoice repositories.VoiceAssigner, logger *zap.Logger) *ScenarioService {
	return &ScenarioService{
		transcriber: transcriber,
		assignVoice: assignVoice,
		logger:      logger,
	}
}

// RetryBuffer exposes the buffered description audio of the last failed
// transcription.
func (s *ScenarioService) RetryBuffer() *RetryBuffer {
	return &s.retry
}

// BuildScenario creates an immutable scenario, assigning every character
// a distinct voice for its role.
func (s *ScenarioService) BuildScenario(description string, specs []CharacterSpec) (*entities.Scenario, error) {
	used := make(map[string]bool, len(specs))
	characters := make([]entities.Character, 0, len(specs))
	for _, spec := range specs {
		voice := s.assignVoice(spec.Role, used)
		used[voice] = true
		characters = append(characters, entities.Character{
			ID:      uuid.NewString(),
			Name:    spec.Name,
			Role:    spec.Role,
			VoiceID: voice,
		})
	}

	scenario := &entities.Scenario{Description: description, Characters: characters}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	s.logger.Info("Scenario built",
		zap.String("mode", string(scenario.Mode())),
		zap.Int("characters", len(characters)))
	return scenario, nil
}

// TranscribeDescription transcribes a spoken scenario description. The
// retry buffer is preserved on failure and cleared on success, matching
// the turn pipeline's contract.
func (s *ScenarioService) TranscribeDescription(ctx context.Context, audio repositories.AudioInput) (string, error) {
	s.retry.Store(audio)

	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelledError("transcribe_description", ctx.Err())
		}
		return "", &TurnError{Kind: FailTranscriptionEmpty, Step: "transcribe_description", Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &TurnError{Kind: FailTranscriptionEmpty, Step: "transcribe_description"}
	}

	s.retry.Clear()
	return text, nil
}
