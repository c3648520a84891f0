package usecase

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
)

// TurnService turns one recorded utterance into ordered, playable
// character replies: transcription, session sync, schema-constrained chat
// call, character-label resolution, same-character merge, parallel speech
// synthesis and log commit, all under the caller's cancellation context.
type TurnService struct {
	transcriber  repositories.Transcriber
	synthesizer  repositories.SpeechSynthesizer
	session      *SessionContext
	log          *entities.ConversationLog
	retry        RetryBuffer
	defaultVoice string
	logger       *zap.Logger
}

// NewTurnService creates the orchestrator over one backend's session
// context and shared log. defaultVoice is used for free-conversation
// replies that carry no character.
func NewTurnService(
	transcriber repositories.Transcriber,
	synthesizer repositories.SpeechSynthesizer,
	session *SessionContext,
	log *entities.ConversationLog,
	defaultVoice string,
	logger *zap.Logger,
) *TurnService {
	return &TurnService{
		transcriber:  transcriber,
		synthesizer:  synthesizer,
		session:      session,
		log:          log,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// RetryBuffer exposes the buffered audio of the last failed turn so the
// caller can resubmit the same bytes.
func (s *TurnService) RetryBuffer() *RetryBuffer {
	return &s.retry
}

// ProcessTurn runs the full pipeline for one utterance. Fatal failures
// (empty transcription, missing chat reply, schema violation) leave the
// log untouched and keep the retry buffer. Cancellation additionally
// guarantees every created audio clip is released. A per-character
// synthesis failure is non-fatal: the turn commits with its text and the
// failed entry carries no audio.
func (s *TurnService) ProcessTurn(ctx context.Context, audio repositories.AudioInput) (*entities.TurnResult, error) {
	s.retry.Store(audio)

	userText, err := s.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	session, err := s.session.Session(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledError("session_sync", ctx.Err())
		}
		return nil, err
	}

	scenario := s.session.Scenario()
	raw, err := session.SendAudio(ctx, audio, responseShapeFor(scenario))
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledError("chat", ctx.Err())
		}
		return nil, &TurnError{Kind: FailChatResponseMissing, Step: "chat", Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &TurnError{Kind: FailChatResponseMissing, Step: "chat"}
	}

	turns, hint, err := parseTurnResponse(raw, scenario)
	if err != nil {
		return nil, err
	}
	turns = mergeAdjacentTurns(turns)

	// Cancellation gate before the synthesis fan-out: a turn cancelled
	// here must issue no synthesis calls at all.
	if ctx.Err() != nil {
		return nil, cancelledError("before_synthesis", ctx.Err())
	}

	synthesized := s.synthesizeAll(ctx, turns)

	// Gate again after the fan-out. Clips created by calls that won the
	// race against cancellation still have to be released.
	if ctx.Err() != nil {
		releaseAll(synthesized)
		return nil, cancelledError("after_synthesis", ctx.Err())
	}

	s.session.Commit(userText, flattenAssistantText(turns))
	s.retry.Clear()

	s.logger.Info("Turn processed",
		zap.Int("characterTurns", len(synthesized)),
		zap.Int("logLength", s.log.Len()))

	return &entities.TurnResult{
		UserText: userText,
		Turns:    synthesized,
		Hint:     hint,
	}, nil
}

// ResynthesizeTurn re-runs only the synthesis step for one character's
// already-known text, for scoped audio retries after a per-character
// failure. The chat call and history are untouched.
func (s *TurnService) ResynthesizeTurn(ctx context.Context, turn entities.CharacterTurn) (*entities.SynthesizedTurn, error) {
	clip, err := s.synthesizer.Synthesize(ctx, repositories.SpeechRequest{
		Text:    turn.French,
		VoiceID: s.voiceFor(turn),
	})
	if err != nil {
		if ctx.Err() != nil {
			if clip != nil {
				clip.Release()
			}
			return nil, cancelledError("resynthesize", ctx.Err())
		}
		return nil, err
	}
	if ctx.Err() != nil {
		clip.Release()
		return nil, cancelledError("resynthesize", ctx.Err())
	}
	return &entities.SynthesizedTurn{CharacterTurn: turn, Audio: clip}, nil
}

func (s *TurnService) transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelledError("transcribe", ctx.Err())
		}
		return "", &TurnError{Kind: FailTranscriptionEmpty, Step: "transcribe", Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &TurnError{Kind: FailTranscriptionEmpty, Step: "transcribe"}
	}
	return text, nil
}

// synthesizeAll fans out one synthesis request per merged character turn
// and settles all of them: a failed request marks its own slot and never
// cancels a sibling. Slots are disjoint, so no locking is needed beyond
// the join.
func (s *TurnService) synthesizeAll(ctx context.Context, turns []entities.CharacterTurn) []entities.SynthesizedTurn {
	results := make([]entities.SynthesizedTurn, len(turns))
	var wg sync.WaitGroup
	for i, turn := range turns {
		wg.Add(1)
		go func(i int, turn entities.CharacterTurn) {
			defer wg.Done()
			clip, err := s.synthesizer.Synthesize(ctx, repositories.SpeechRequest{
				Text:    turn.French,
				VoiceID: s.voiceFor(turn),
			})
			if err != nil {
				s.logger.Warn("Synthesis failed for character turn",
					zap.String("character", turn.Character.Name),
					zap.Error(err))
				results[i] = entities.SynthesizedTurn{CharacterTurn: turn, Failed: true}
				return
			}
			results[i] = entities.SynthesizedTurn{CharacterTurn: turn, Audio: clip}
		}(i, turn)
	}
	wg.Wait()
	return results
}

func (s *TurnService) voiceFor(turn entities.CharacterTurn) string {
	if turn.Character.VoiceID != "" {
		return turn.Character.VoiceID
	}
	return s.defaultVoice
}

func releaseAll(turns []entities.SynthesizedTurn) {
	for _, t := range turns {
		if t.Audio != nil {
			t.Audio.Release()
		}
	}
}
