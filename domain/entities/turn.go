package entities

import "sync"

// AudioClip is an opaque playable audio resource produced by a speech
// synthesizer. Release frees the underlying buffer; a released clip must
// never be handed to a caller, and a cancelled turn must release every
// clip it created before failing.
type AudioClip struct {
	mu       sync.Mutex
	data     []byte
	mimeType string
	released bool
}

// NewAudioClip wraps synthesized audio bytes.
func NewAudioClip(data []byte, mimeType string) *AudioClip {
	return &AudioClip{data: data, mimeType: mimeType}
}

// Bytes returns the audio data, or nil after Release.
func (c *AudioClip) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// MIMEType returns the container type of the audio data.
func (c *AudioClip) MIMEType() string {
	return c.mimeType
}

// Release frees the audio buffer. Safe to call more than once.
func (c *AudioClip) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.released = true
}

// Released reports whether Release has been called.
func (c *AudioClip) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// CharacterTurn is one character's reply as produced by response
// validation, before synthesis. In free conversation the Character is the
// zero value and the assigned voice is the caller's default.
type CharacterTurn struct {
	Character Character `json:"character"`
	French    string    `json:"french"`
	English   string    `json:"english"`
}

// SynthesizedTurn is a character turn plus its synthesis outcome. Failed
// turns keep their text; only the audio is missing.
type SynthesizedTurn struct {
	CharacterTurn
	Audio  *AudioClip `json:"-"`
	Failed bool       `json:"failed"`
}

// TurnResult is the orchestrator's sole output for one processed
// utterance: the transcribed user text and the ordered character replies.
// Immutable once returned.
type TurnResult struct {
	UserText string            `json:"user_text"`
	Turns    []SynthesizedTurn `json:"turns"`
	Hint     string            `json:"hint,omitempty"`
}

// ReleaseAudio releases every clip attached to the result.
func (r *TurnResult) ReleaseAudio() {
	for _, t := range r.Turns {
		if t.Audio != nil {
			t.Audio.Release()
		}
	}
}
