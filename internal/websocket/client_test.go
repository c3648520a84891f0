package websocket

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/usecase"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	return "Bonjour.", nil
}

type stubChatModel struct{}

func (stubChatModel) NewSession(ctx context.Context, systemInstruction string, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	return stubChatSession{}, nil
}

type stubChatSession struct{}

func (stubChatSession) SendAudio(ctx context.Context, audio repositories.AudioInput, shape repositories.ResponseShape) (string, error) {
	return `{"french":"Salut !","english":"Hi!"}`, nil
}

func (stubChatSession) History() []repositories.ChatMessage { return nil }

// slowSynthesizer blocks until the turn is cancelled, then keeps working
// briefly before returning, like a remote call winding down after losing
// the race against cancellation.
type slowSynthesizer struct {
	entered chan struct{}
	exited  atomic.Bool
}

func (s *slowSynthesizer) Synthesize(ctx context.Context, req repositories.SpeechRequest) (*entities.AudioClip, error) {
	close(s.entered)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	s.exited.Store(true)
	return nil, ctx.Err()
}

func newTestClient(synth repositories.SpeechSynthesizer) (*Client, *entities.ConversationLog) {
	logger := zap.NewNop()
	log := entities.NewConversationLog()
	session := usecase.NewSessionContext(stubChatModel{}, log, logger)
	return &Client{
		send:      make(chan []byte, 64),
		sessionID: "test-session",
		log:       log,
		session:   session,
		turns:     usecase.NewTurnService(stubTranscriber{}, synth, session, log, "Kore", logger),
		scenarios: usecase.NewScenarioService(stubTranscriber{}, func(string, map[string]bool) string { return "Kore" }, logger),
		logger:    logger,
	}, log
}

func TestCancelActiveTurnWaitsForPipeline(t *testing.T) {
	synth := &slowSynthesizer{entered: make(chan struct{})}
	client, log := newTestClient(synth)

	client.startTurn(repositories.AudioInput{Data: []byte{1}, MIMEType: "audio/webm"})

	// Wait until the turn is inside the synthesis fan-out, then cancel.
	select {
	case <-synth.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("Turn never reached synthesis")
	}
	client.cancelActiveTurn()

	// cancelActiveTurn must not return while the pipeline is still
	// running; mutating session state right after it is the whole point.
	if !synth.exited.Load() {
		t.Error("Expected cancelActiveTurn to block until the turn goroutine exited")
	}
	if log.Len() != 0 {
		t.Errorf("Expected cancelled turn to leave the log untouched, got %d entries", log.Len())
	}

	// Safe now: no concurrent commit can race these writes.
	client.session.SetScenario(nil)
	client.session.ClearHistory()
}

func TestCancelActiveTurnWithoutTurnIsNoop(t *testing.T) {
	client, _ := newTestClient(&slowSynthesizer{entered: make(chan struct{})})

	done := make(chan struct{})
	go func() {
		client.cancelActiveTurn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected cancelActiveTurn to return immediately with no turn in flight")
	}
}
