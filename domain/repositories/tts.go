package repositories

import (
	"context"

	"github.com/mlaferte/causerie/domain/entities"
)

// SpeechRequest is one synthesis call: the text to speak and the voice to
// speak it with. English translations are for display only and are never
// sent to synthesis.
type SpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// SpeechSynthesizer abstracts text-to-speech providers. Invoked once per
// merged character turn; the returned clip is owned by the caller, who is
// responsible for releasing it.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (*entities.AudioClip, error)
}
