package repositories

import "context"

// Role defines the type of message sender.
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ShapeKind tags the structured-output contract requested from the model.
type ShapeKind int

const (
	// ShapeFreeform requests the single-character JSON shape with the
	// hint field optional (no scenario is active).
	ShapeFreeform ShapeKind = iota
	// ShapeSingleCharacter requests the single-character JSON shape with
	// a required hint.
	ShapeSingleCharacter
	// ShapeMultiCharacter requests the characterResponses array shape
	// with positional "Character N" labels.
	ShapeMultiCharacter
)

// ResponseShape selects which JSON contract a chat call must satisfy.
// The shape is chosen once per scenario from the character count alone.
type ResponseShape struct {
	Kind ShapeKind
	// CharacterCount bounds the positional labels for ShapeMultiCharacter.
	CharacterCount int
}

// ChatModel abstracts a chat/LLM provider that supports stateful sessions.
type ChatModel interface {
	// NewSession creates a chat session seeded with the system
	// instruction and the full prior history in a single call. Session
	// resync deliberately reseeds in bulk rather than replaying entries
	// one by one.
	NewSession(ctx context.Context, systemInstruction string, history []ChatMessage) (ChatSession, error)
}

// ChatSession represents an ongoing conversation session with rolling
// context on the provider side.
type ChatSession interface {
	// SendAudio sends the user's recorded audio (not just a transcript)
	// into the session and returns the model's raw reply text,
	// constrained to the requested response shape.
	SendAudio(ctx context.Context, audio AudioInput, shape ResponseShape) (string, error)
	// History returns the messages accumulated inside the session.
	History() []ChatMessage
}
