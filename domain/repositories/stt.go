package repositories

import "context"

// AudioInput is one recorded utterance as handed over by the client.
type AudioInput struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Transcriber abstracts speech recognition services. Implementations must
// transcribe verbatim; an empty or whitespace-only result is a usage error
// on the caller's side, never a valid empty turn.
type Transcriber interface {
	Transcribe(ctx context.Context, audio AudioInput) (string, error)
}
