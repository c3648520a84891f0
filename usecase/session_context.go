package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/domain/repositories"
)

// SessionContext owns one backend's stateful chat session: the provider
// session handle, the active scenario and the number of conversation log
// entries already reflected inside the handle. Whenever the log has grown
// past the synced count, or the scenario changed, the handle is stale and
// is recreated from the entire log in a single call before the next chat
// message. Replaying the gap entry by entry would invoke the remote chat
// capability once per entry; bulk reseeding is one call.
type SessionContext struct {
	model    repositories.ChatModel
	log      *entities.ConversationLog
	logger   *zap.Logger
	scenario *entities.Scenario
	session  repositories.ChatSession
	synced   int
}

// NewSessionContext creates an uninitialized session context over the
// shared conversation log.
func NewSessionContext(model repositories.ChatModel, log *entities.ConversationLog, logger *zap.Logger) *SessionContext {
	return &SessionContext{
		model:  model,
		log:    log,
		logger: logger,
	}
}

// Scenario returns the active scenario, nil in free conversation.
func (c *SessionContext) Scenario() *entities.Scenario {
	return c.scenario
}

// SyncedCount returns how many log entries the provider session has seen.
func (c *SessionContext) SyncedCount() int {
	return c.synced
}

// SetScenario replaces the active scenario and marks the session stale.
// Passing nil returns to free conversation.
func (c *SessionContext) SetScenario(scenario *entities.Scenario) {
	c.scenario = scenario
	c.session = nil
	c.synced = 0
	mode := entities.ModeFreeConversation
	if scenario != nil {
		mode = scenario.Mode()
	}
	c.logger.Info("Scenario changed, session marked stale", zap.String("mode", string(mode)))
}

// ClearHistory truncates the shared log and discards any pending session
// state.
func (c *SessionContext) ClearHistory() {
	c.log.Clear()
	c.session = nil
	c.synced = 0
	c.logger.Info("Conversation history cleared")
}

// Session returns an active chat session, recreating it from the full log
// when the handle is missing or stale. On success the synced count equals
// the log length at the time of the call.
func (c *SessionContext) Session(ctx context.Context) (repositories.ChatSession, error) {
	logLen := c.log.Len()
	if c.session != nil && c.synced >= logLen {
		return c.session, nil
	}

	history := make([]repositories.ChatMessage, 0, logLen)
	for _, entry := range c.log.Entries() {
		role := repositories.UserRole
		if entry.Role == entities.EntryRoleAssistant {
			role = repositories.AssistantRole
		}
		history = append(history, repositories.ChatMessage{Role: role, Content: entry.Content})
	}

	session, err := c.model.NewSession(ctx, systemInstructionFor(c.scenario), history)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	c.session = session
	c.synced = len(history)
	c.logger.Info("Chat session created from log",
		zap.Int("seededEntries", len(history)))
	return c.session, nil
}

// Commit appends the user turn and the flattened assistant turn to the
// shared log as one atomic step and advances the synced count past both,
// since the provider session already contains them.
func (c *SessionContext) Commit(userText, assistantText string) {
	c.log.Append(
		entities.ConversationEntry{Role: entities.EntryRoleUser, Content: userText},
		entities.ConversationEntry{Role: entities.EntryRoleAssistant, Content: assistantText},
	)
	c.synced += 2
}
