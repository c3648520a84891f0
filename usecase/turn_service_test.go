package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	return f.text, f.err
}

type fakeSynthesizer struct {
	mu       sync.Mutex
	calls    []repositories.SpeechRequest
	clips    []*entities.AudioClip
	failText string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req repositories.SpeechRequest) (*entities.AudioClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failText != "" && strings.Contains(req.Text, f.failText) {
		return nil, fmt.Errorf("synthesis unavailable")
	}
	clip := entities.NewAudioClip([]byte("audio:"+req.Text), "audio/wav")
	f.clips = append(f.clips, clip)
	return clip, nil
}

func (f *fakeSynthesizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeChatModel struct {
	sessions    int
	reply       string
	lastHistory []repositories.ChatMessage
	// onSend runs inside SendAudio, before the reply is returned. Used to
	// cancel the turn between the chat call and synthesis.
	onSend func()
}

func (f *fakeChatModel) NewSession(ctx context.Context, systemInstruction string, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	f.sessions++
	f.lastHistory = append([]repositories.ChatMessage(nil), history...)
	return &fakeChatSession{model: f, history: append([]repositories.ChatMessage(nil), history...)}, nil
}

type fakeChatSession struct {
	model   *fakeChatModel
	history []repositories.ChatMessage
}

func (s *fakeChatSession) SendAudio(ctx context.Context, audio repositories.AudioInput, shape repositories.ResponseShape) (string, error) {
	if s.model.onSend != nil {
		s.model.onSend()
	}
	reply := s.model.reply
	s.history = append(s.history,
		repositories.ChatMessage{Role: repositories.UserRole, Content: "[audio]"},
		repositories.ChatMessage{Role: repositories.AssistantRole, Content: reply},
	)
	return reply, nil
}

func (s *fakeChatSession) History() []repositories.ChatMessage {
	return append([]repositories.ChatMessage(nil), s.history...)
}

func threeCharacterScenario() *entities.Scenario {
	return &entities.Scenario{
		Description: "Au marché",
		Characters: []entities.Character{
			{ID: "c1", Name: "Marie", Role: "vendor", VoiceID: "Puck"},
			{ID: "c2", Name: "Luc", Role: "customer", VoiceID: "Charon"},
			{ID: "c3", Name: "Anne", Role: "child", VoiceID: "Leda"},
		},
	}
}

func newTestTurnService(model *fakeChatModel, synth repositories.SpeechSynthesizer) (*TurnService, *SessionContext, *entities.ConversationLog) {
	logger := zap.NewNop()
	log := entities.NewConversationLog()
	session := NewSessionContext(model, log, logger)
	transcriber := &fakeTranscriber{text: "Bonjour tout le monde."}
	service := NewTurnService(transcriber, synth, session, log, "Kore", logger)
	return service, session, log
}

func testAudio() repositories.AudioInput {
	return repositories.AudioInput{Data: []byte{1, 2, 3}, MIMEType: "audio/webm"}
}

func TestProcessTurnFreeConversation(t *testing.T) {
	model := &fakeChatModel{reply: `{"french":"Bonjour !","english":"Hello!","hint":"Présentez-vous."}`}
	synth := &fakeSynthesizer{}
	service, session, log := newTestTurnService(model, synth)

	result, err := service.ProcessTurn(context.Background(), testAudio())
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	if result.UserText != "Bonjour tout le monde." {
		t.Errorf("Expected transcribed user text, got %q", result.UserText)
	}
	if len(result.Turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(result.Turns))
	}
	if result.Turns[0].Audio == nil || result.Turns[0].Failed {
		t.Error("Expected a successful turn with audio")
	}
	if result.Hint != "Présentez-vous." {
		t.Errorf("Expected hint to pass through, got %q", result.Hint)
	}

	// Free conversation uses the default voice.
	if synth.calls[0].VoiceID != "Kore" {
		t.Errorf("Expected default voice, got %q", synth.calls[0].VoiceID)
	}

	if log.Len() != 2 {
		t.Errorf("Expected log to grow by 2, got %d entries", log.Len())
	}
	if session.SyncedCount() != 2 {
		t.Errorf("Expected synced count 2, got %d", session.SyncedCount())
	}
	if _, ok := service.RetryBuffer().Last(); ok {
		t.Error("Expected retry buffer cleared after success")
	}
}

func TestProcessTurnMergesAdjacentRepeats(t *testing.T) {
	reply := `{"characterResponses":[` +
		`{"characterName":"Character 1","french":"Bonjour.","english":"Hello."},` +
		`{"characterName":"Character 1","french":"Bienvenue !","english":"Welcome!"},` +
		`{"characterName":"Character 2","french":"Merci.","english":"Thanks."}` +
		`]}`
	model := &fakeChatModel{reply: reply}
	synth := &fakeSynthesizer{}
	service, session, _ := newTestTurnService(model, synth)
	session.SetScenario(threeCharacterScenario())

	result, err := service.ProcessTurn(context.Background(), testAudio())
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	// Two adjacent Character 1 entries merge into one synthesis call.
	if len(result.Turns) != 2 {
		t.Fatalf("Expected 2 merged turns, got %d", len(result.Turns))
	}
	if synth.callCount() != 2 {
		t.Errorf("Expected 2 synthesis calls, got %d", synth.callCount())
	}
	if result.Turns[0].French != "Bonjour. Bienvenue !" {
		t.Errorf("Expected merged french text, got %q", result.Turns[0].French)
	}
	if result.Turns[0].Character.VoiceID != "Puck" {
		t.Errorf("Expected Character 1 voice, got %q", result.Turns[0].Character.VoiceID)
	}
	if result.Turns[1].Character.ID != "c2" {
		t.Errorf("Expected second turn for Character 2, got %q", result.Turns[1].Character.ID)
	}
}

func TestProcessTurnPartialSynthesisFailure(t *testing.T) {
	reply := `{"characterResponses":[` +
		`{"characterName":"Character 1","french":"Bonjour.","english":"Hello."},` +
		`{"characterName":"Character 2","french":"Combien ?","english":"How much?"},` +
		`{"characterName":"Character 3","french":"Regarde !","english":"Look!"}` +
		`]}`
	model := &fakeChatModel{reply: reply}
	synth := &fakeSynthesizer{failText: "Combien"}
	service, _, log := newTestTurnService(model, synth)
	service.session.SetScenario(threeCharacterScenario())

	result, err := service.ProcessTurn(context.Background(), testAudio())
	if err != nil {
		t.Fatalf("Expected partial failure to be non-fatal, got %v", err)
	}

	if len(result.Turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(result.Turns))
	}
	failed := result.Turns[1]
	if !failed.Failed || failed.Audio != nil {
		t.Error("Expected middle turn marked failed without audio")
	}
	if failed.French != "Combien ?" {
		t.Errorf("Expected failed turn to keep its text, got %q", failed.French)
	}
	if result.Turns[0].Failed || result.Turns[2].Failed {
		t.Error("Expected sibling turns to succeed")
	}

	// The turn still commits: text survives even when one voice does not.
	if log.Len() != 2 {
		t.Errorf("Expected committed log, got %d entries", log.Len())
	}
}

func TestProcessTurnCancelledBeforeSynthesis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := &fakeChatModel{
		reply:  `{"french":"Bonjour !","english":"Hello!"}`,
		onSend: cancel,
	}
	synth := &fakeSynthesizer{}
	service, session, log := newTestTurnService(model, synth)

	_, err := service.ProcessTurn(ctx, testAudio())
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !IsCancelled(err) {
		t.Errorf("Expected cancelled kind, got %v", err)
	}

	// Cancelled between chat and synthesis: no synthesis call may happen.
	if synth.callCount() != 0 {
		t.Errorf("Expected 0 synthesis calls after cancellation, got %d", synth.callCount())
	}
	if log.Len() != 0 {
		t.Errorf("Expected log untouched, got %d entries", log.Len())
	}
	if session.SyncedCount() != 0 {
		t.Errorf("Expected synced count unchanged, got %d", session.SyncedCount())
	}
	if _, ok := service.RetryBuffer().Last(); !ok {
		t.Error("Expected retry buffer preserved after cancellation")
	}
}

func TestProcessTurnCancelledAfterSynthesisReleasesClips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reply := `{"characterResponses":[` +
		`{"characterName":"Character 1","french":"Bonjour.","english":"Hello."},` +
		`{"characterName":"Character 2","french":"Salut.","english":"Hi."}` +
		`]}`
	model := &fakeChatModel{reply: reply}
	// Cancel while the fan-out runs: the gate after the join must release
	// every clip that was created.
	synth := &cancellingSynthesizer{cancel: cancel}
	service, session, log := newTestTurnService(model, synth)
	session.SetScenario(threeCharacterScenario())

	_, err := service.ProcessTurn(ctx, testAudio())
	if !IsCancelled(err) {
		t.Fatalf("Expected cancelled error, got %v", err)
	}

	synth.mu.Lock()
	clips := append([]*entities.AudioClip(nil), synth.clips...)
	synth.mu.Unlock()
	if len(clips) == 0 {
		t.Fatal("Expected at least one clip to have been created")
	}
	for i, clip := range clips {
		if !clip.Released() {
			t.Errorf("Expected clip %d released after cancellation", i)
		}
	}
	if log.Len() != 0 {
		t.Errorf("Expected log untouched, got %d entries", log.Len())
	}
}

// cancellingSynthesizer cancels the turn on its first call and still
// returns a clip, simulating a request that wins the race.
type cancellingSynthesizer struct {
	fakeSynthesizer
	cancel context.CancelFunc
}

func (c *cancellingSynthesizer) Synthesize(ctx context.Context, req repositories.SpeechRequest) (*entities.AudioClip, error) {
	c.cancel()
	return c.fakeSynthesizer.Synthesize(ctx, req)
}

func TestProcessTurnEmptyTranscription(t *testing.T) {
	model := &fakeChatModel{reply: `{"french":"x","english":"y"}`}
	synth := &fakeSynthesizer{}
	service, _, log := newTestTurnService(model, synth)
	service.transcriber = &fakeTranscriber{text: "   "}

	_, err := service.ProcessTurn(context.Background(), testAudio())
	kind, ok := FailureKindOf(err)
	if !ok || kind != FailTranscriptionEmpty {
		t.Fatalf("Expected transcription_empty, got %v", err)
	}
	if model.sessions != 0 {
		t.Errorf("Expected no chat session for empty transcription, got %d", model.sessions)
	}
	if log.Len() != 0 {
		t.Errorf("Expected log untouched, got %d entries", log.Len())
	}
	if _, ok := service.RetryBuffer().Last(); !ok {
		t.Error("Expected retry buffer preserved after failure")
	}
}

func TestProcessTurnMissingChatResponse(t *testing.T) {
	model := &fakeChatModel{reply: "   "}
	synth := &fakeSynthesizer{}
	service, _, log := newTestTurnService(model, synth)

	_, err := service.ProcessTurn(context.Background(), testAudio())
	kind, ok := FailureKindOf(err)
	if !ok || kind != FailChatResponseMissing {
		t.Fatalf("Expected chat_response_missing, got %v", err)
	}
	if log.Len() != 0 {
		t.Errorf("Expected log untouched, got %d entries", log.Len())
	}
}

func TestProcessTurnSchemaViolationIsFatal(t *testing.T) {
	reply := `{"characterResponses":[{"characterName":"Baker","french":"Bonjour.","english":"Hello."}]}`
	model := &fakeChatModel{reply: reply}
	synth := &fakeSynthesizer{}
	service, _, log := newTestTurnService(model, synth)
	service.session.SetScenario(threeCharacterScenario())

	_, err := service.ProcessTurn(context.Background(), testAudio())
	kind, ok := FailureKindOf(err)
	if !ok || kind != FailSchemaValidation {
		t.Fatalf("Expected schema_validation, got %v", err)
	}
	if synth.callCount() != 0 {
		t.Errorf("Expected no synthesis on schema violation, got %d calls", synth.callCount())
	}
	if log.Len() != 0 {
		t.Errorf("Expected log untouched, got %d entries", log.Len())
	}
}

func TestProcessTurnSyncedCountNeverExceedsLog(t *testing.T) {
	model := &fakeChatModel{reply: `{"french":"Oui.","english":"Yes."}`}
	synth := &fakeSynthesizer{}
	service, session, log := newTestTurnService(model, synth)

	for i := 0; i < 3; i++ {
		if _, err := service.ProcessTurn(context.Background(), testAudio()); err != nil {
			t.Fatalf("Turn %d failed: %v", i, err)
		}
		if session.SyncedCount() > log.Len() {
			t.Fatalf("Synced count %d exceeds log length %d", session.SyncedCount(), log.Len())
		}
	}
	if log.Len() != 6 {
		t.Errorf("Expected 6 log entries after 3 turns, got %d", log.Len())
	}
	// The session handle stays fresh across committed turns, so one
	// provider session serves all three.
	if model.sessions != 1 {
		t.Errorf("Expected a single provider session, got %d", model.sessions)
	}
}

func TestResynthesizeTurn(t *testing.T) {
	model := &fakeChatModel{}
	synth := &fakeSynthesizer{}
	service, _, _ := newTestTurnService(model, synth)

	turn := entities.CharacterTurn{
		Character: entities.Character{ID: "c1", Name: "Marie", VoiceID: "Puck"},
		French:    "Bonjour.",
		English:   "Hello.",
	}
	result, err := service.ResynthesizeTurn(context.Background(), turn)
	if err != nil {
		t.Fatalf("ResynthesizeTurn failed: %v", err)
	}
	if result.Audio == nil {
		t.Fatal("Expected audio on resynthesized turn")
	}
	if synth.calls[0].VoiceID != "Puck" {
		t.Errorf("Expected character voice, got %q", synth.calls[0].VoiceID)
	}
	if model.sessions != 0 {
		t.Errorf("Expected no chat call during resynthesis, got %d sessions", model.sessions)
	}
}
