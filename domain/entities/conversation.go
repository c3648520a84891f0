package entities

import "sync"

// EntryRole is the speaker of a conversation entry.
type EntryRole string

const (
	EntryRoleUser      EntryRole = "user"
	EntryRoleAssistant EntryRole = "assistant"
)

// ConversationEntry is one turn of the shared conversation log.
type ConversationEntry struct {
	Role    EntryRole `json:"role"`
	Content string    `json:"content"`
}

// ConversationLog is the ordered, append-only record of everything that has
// been said in the current practice session. It is the single source of
// truth that chat sessions are (re)seeded from. Entries are never mutated
// or deleted except by Clear, which truncates the whole log.
type ConversationLog struct {
	mu      sync.Mutex
	entries []ConversationEntry
}

// NewConversationLog creates an empty log.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// Append adds entries at the end of the log as a single atomic step.
func (l *ConversationLog) Append(entries ...ConversationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the log in conversation order.
func (l *ConversationLog) Entries() []ConversationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConversationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear truncates the whole log.
func (l *ConversationLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
