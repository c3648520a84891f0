package usecase

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a turn could not complete. Callers branch on
// the kind rather than on error identity: Cancelled is not a fault and
// should suppress error UI, the other kinds discard the turn and leave the
// retry buffer intact.
type FailureKind string

const (
	// FailTranscriptionEmpty means the transcriber returned blank text.
	// An empty user turn would corrupt conversation coherence, so this is
	// a hard failure rather than a silent empty turn.
	FailTranscriptionEmpty FailureKind = "transcription_empty"
	// FailChatResponseMissing means the chat call returned no text.
	FailChatResponseMissing FailureKind = "chat_response_missing"
	// FailSchemaValidation means the chat reply violated its structured
	// contract (malformed JSON, out-of-range character label).
	FailSchemaValidation FailureKind = "schema_validation"
	// FailCancelled means the turn was cooperatively cancelled. The log
	// is untouched and no audio clip remains unreleased.
	FailCancelled FailureKind = "cancelled"
)

// TurnError is the tagged failure type of the turn pipeline. Raw carries
// the offending response body for schema violations so the caller can
// decide between an identical retry and surfacing a contract violation.
type TurnError struct {
	Kind FailureKind
	Step string
	Raw  string
	Err  error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Step)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// FailureKindOf extracts the kind from a turn error, mapping raw context
// cancellation to FailCancelled. Returns false for other errors.
func FailureKindOf(err error) (FailureKind, bool) {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	if errors.Is(err, context.Canceled) {
		return FailCancelled, true
	}
	return "", false
}

// IsCancelled reports whether the error represents cooperative
// cancellation rather than a fault.
func IsCancelled(err error) bool {
	kind, ok := FailureKindOf(err)
	return ok && kind == FailCancelled
}

func cancelledError(step string, cause error) *TurnError {
	return &TurnError{Kind: FailCancelled, Step: step, Err: cause}
}
