package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
	"github.com/mlaferte/causerie/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Generous: one recorded
	// utterance travels base64-encoded in a single message.
	maxMessageSize = 4 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub tracks active practice-session clients and owns the capability
// adapters they share. Each client gets its own conversation log and
// session context; the hub only wires dependencies.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	chatModel    repositories.ChatModel
	transcriber  repositories.Transcriber
	synthesizer  repositories.SpeechSynthesizer
	assignVoice  repositories.VoiceAssigner
	defaultVoice string

	logger *zap.Logger
}

// NewHub creates a WebSocket hub over the capability adapters.
func NewHub(
	chatModel repositories.ChatModel,
	transcriber repositories.Transcriber,
	synthesizer repositories.SpeechSynthesizer,
	assignVoice repositories.VoiceAssigner,
	defaultVoice string,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		chatModel:    chatModel,
		transcriber:  transcriber,
		synthesizer:  synthesizer,
		assignVoice:  assignVoice,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// HandleConnection upgrades an authenticated request and starts the
// client's pumps. Each connection is one practice session with its own
// log, session context and retry buffers.
func HandleConnection(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	log := entities.NewConversationLog()
	sessionCtx := usecase.NewSessionContext(hub.chatModel, log, logger)
	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		sessionID: sessionID,
		log:       log,
		session:   sessionCtx,
		turns:     usecase.NewTurnService(hub.transcriber, hub.synthesizer, sessionCtx, log, hub.defaultVoice, logger),
		scenarios: usecase.NewScenarioService(hub.transcriber, hub.assignVoice, logger),
		logger:    logger.With(zap.String("sessionID", sessionID)),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}
