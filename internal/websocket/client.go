package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/usecase"
)

// Client is one connected practice session. The UI serializes turns, and
// the client enforces it: starting a new turn cancels the previous one
// before any new remote call is issued.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	sessionID string
	log       *entities.ConversationLog
	session   *usecase.SessionContext
	turns     *usecase.TurnService
	scenarios *usecase.ScenarioService

	// turnMu guards the in-flight turn state and the last merged turns
	// kept for scoped resynthesis. turnDone closes when the turn goroutine
	// exits, so cancellation can wait for the pipeline to actually stop
	// before session state is mutated.
	turnMu     sync.Mutex
	turnCancel context.CancelFunc
	turnDone   chan struct{}
	lastTurns  []entities.CharacterTurn

	logger *zap.Logger
}

// readPump pumps messages from the websocket connection to the handlers.
func (c *Client) readPump() {
	defer func() {
		c.cancelActiveTurn()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected websocket close", zap.Error(err))
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid_message", "message is not valid JSON", false)
			continue
		}
		c.dispatch(msg)
	}
}

// writePump pumps messages from the send channel to the websocket
// connection and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(msg InboundMessage) {
	switch msg.Type {
	case TypeAudioTurn:
		c.handleAudioTurn(msg)
	case TypeCancel:
		c.cancelActiveTurn()
	case TypeRetryTurn:
		c.handleRetryTurn()
	case TypeSetScenario:
		c.handleSetScenario(msg)
	case TypeClearScenario:
		c.session.SetScenario(nil)
		c.sendJSON(ScenarioSetMessage{Type: TypeScenarioSet})
	case TypeClearHistory:
		c.cancelActiveTurn()
		c.session.ClearHistory()
		c.sendJSON(map[string]string{"type": TypeHistoryCleared})
	case TypeTranscribeDescription:
		c.handleTranscribeDescription(msg)
	case TypeResynthesize:
		c.handleResynthesize(msg)
	default:
		c.sendError("unknown_type", "unknown message type: "+msg.Type, false)
	}
}

func (c *Client) handleAudioTurn(msg InboundMessage) {
	audio, err := decodeAudio(msg)
	if err != nil {
		c.sendError("invalid_audio", err.Error(), false)
		return
	}
	c.startTurn(audio)
}

// handleRetryTurn resubmits the buffered audio of the last failed or
// cancelled turn through the full pipeline.
func (c *Client) handleRetryTurn() {
	audio, ok := c.turns.RetryBuffer().Last()
	if !ok {
		c.sendError("nothing_to_retry", "no buffered audio to retry", false)
		return
	}
	c.startTurn(audio)
}

// startTurn cancels any in-flight turn, then runs the pipeline under a
// fresh cancellation context.
func (c *Client) startTurn(audio repositories.AudioInput) {
	c.cancelActiveTurn()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.turnMu.Lock()
	c.turnCancel = cancel
	c.turnDone = done
	c.turnMu.Unlock()

	go func() {
		defer func() {
			c.turnMu.Lock()
			c.turnCancel = nil
			c.turnDone = nil
			c.turnMu.Unlock()
			cancel()
			close(done)
		}()

		result, err := c.turns.ProcessTurn(ctx, audio)
		if err != nil {
			c.sendTurnError(err)
			return
		}

		c.turnMu.Lock()
		c.lastTurns = make([]entities.CharacterTurn, 0, len(result.Turns))
		for _, t := range result.Turns {
			c.lastTurns = append(c.lastTurns, t.CharacterTurn)
		}
		c.turnMu.Unlock()

		c.sendJSON(newTurnResultMessage(result))
		// Clips are encoded into the outbound message; the server-side
		// buffers are no longer needed.
		result.ReleaseAudio()
	}()
}

func (c *Client) handleSetScenario(msg InboundMessage) {
	scenario, err := c.scenarios.BuildScenario(msg.Description, msg.Characters)
	if err != nil {
		c.sendError("invalid_scenario", err.Error(), false)
		return
	}
	c.cancelActiveTurn()
	c.session.SetScenario(scenario)
	c.sendJSON(ScenarioSetMessage{Type: TypeScenarioSet, Scenario: scenario})
}

// handleTranscribeDescription transcribes off the read loop so a cancel
// or follow-up message is never stuck behind a slow remote call.
func (c *Client) handleTranscribeDescription(msg InboundMessage) {
	audio, err := decodeAudio(msg)
	if err != nil {
		c.sendError("invalid_audio", err.Error(), false)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		text, err := c.scenarios.TranscribeDescription(ctx, audio)
		if err != nil {
			c.sendTurnError(err)
			return
		}
		c.sendJSON(TranscriptionMessage{Type: TypeTranscription, Text: text})
	}()
}

// handleResynthesize re-runs synthesis for one character turn of the last
// result, without re-transcribing or re-running the chat call.
func (c *Client) handleResynthesize(msg InboundMessage) {
	c.turnMu.Lock()
	var turn entities.CharacterTurn
	ok := msg.TurnIndex >= 0 && msg.TurnIndex < len(c.lastTurns)
	if ok {
		turn = c.lastTurns[msg.TurnIndex]
	}
	c.turnMu.Unlock()
	if !ok {
		c.sendError("invalid_turn_index", "no such turn in the last result", false)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		synthesized, err := c.turns.ResynthesizeTurn(ctx, turn)
		if err != nil {
			c.sendTurnError(err)
			return
		}
		c.sendJSON(TurnAudioMessage{
			Type:      TypeTurnAudio,
			TurnIndex: msg.TurnIndex,
			AudioData: base64.StdEncoding.EncodeToString(synthesized.Audio.Bytes()),
			AudioMIME: synthesized.Audio.MIMEType(),
		})
		synthesized.Audio.Release()
	}()
}

// cancelActiveTurn cancels the in-flight turn and blocks until its
// goroutine has exited. Callers that mutate the session context right
// after (set_scenario, clear_history, a new turn) rely on this: a turn
// past its post-synthesis gate may still be committing, and the commit
// must finish or fail before the session state changes underneath it.
func (c *Client) cancelActiveTurn() {
	c.turnMu.Lock()
	cancel := c.turnCancel
	done := c.turnDone
	c.turnCancel = nil
	c.turnMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) sendTurnError(err error) {
	kind, ok := usecase.FailureKindOf(err)
	if !ok {
		c.sendError("turn_failed", err.Error(), false)
		return
	}
	c.sendError(string(kind), err.Error(), kind == usecase.FailCancelled)
}

func (c *Client) sendError(code, message string, cancelled bool) {
	c.sendJSON(ErrorMessage{Type: TypeError, Code: code, Message: message, Cancelled: cancelled})
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

func decodeAudio(msg InboundMessage) (repositories.AudioInput, error) {
	data, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		return repositories.AudioInput{}, err
	}
	mime := msg.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}
	return repositories.AudioInput{Data: data, MIMEType: mime}, nil
}
