package usecase

import (
	"sync"

	"github.com/mlaferte/causerie/domain/repositories"
)

// RetryBuffer holds the most recent raw audio offered to a call site so a
// failed or cancelled turn can be resubmitted without re-recording. The
// buffer is preserved on failure and cancellation alike and cleared only
// on success.
type RetryBuffer struct {
	mu    sync.Mutex
	audio *repositories.AudioInput
}

// Store remembers the audio input.
func (b *RetryBuffer) Store(audio repositories.AudioInput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := audio
	copied.Data = append([]byte(nil), audio.Data...)
	b.audio = &copied
}

// Last returns the buffered audio, if any.
func (b *RetryBuffer) Last() (repositories.AudioInput, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.audio == nil {
		return repositories.AudioInput{}, false
	}
	return *b.audio, true
}

// Clear drops the buffered audio.
func (b *RetryBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = nil
}
