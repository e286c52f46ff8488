// Package session keeps per-actor conversational context and the
// accepted-action-id sets in memory. It is deliberately independent of
// the store so a storage outage cannot corrupt duplicate detection.
package session

import (
	"sync"
	"time"

	"github.com/jmoralesv/agrobook/internal/core/domain"
)

const (
	// DefaultTTL resets an actor's context after this much idle time.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxContextChars bounds the message window by total content
	// length, dropping oldest messages first.
	DefaultMaxContextChars = 2000
)

type actorContext struct {
	messages   []domain.Message
	actionIDs  map[string]struct{}
	lastActive time.Time
}

type Manager struct {
	mu       sync.Mutex
	contexts map[string]*actorContext

	ttl      time.Duration
	maxChars int
	now      func() time.Time
}

func NewManager(ttl time.Duration, maxChars int) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &Manager{
		contexts: make(map[string]*actorContext),
		ttl:      ttl,
		maxChars: maxChars,
		now:      time.Now,
	}
}

// context returns the actor's live context, creating it lazily and
// resetting it wholesale when it has been idle past the TTL.
// Callers must hold m.mu.
func (m *Manager) context(actor string) *actorContext {
	now := m.now()
	c, ok := m.contexts[actor]
	if !ok || now.Sub(c.lastActive) > m.ttl {
		c = &actorContext{actionIDs: make(map[string]struct{}), lastActive: now}
		m.contexts[actor] = c
	}
	return c
}

// BeginBatch clears the accepted-id set so duplicate detection is
// scoped to the batch about to be processed.
func (m *Manager) BeginBatch(actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.context(actor)
	c.actionIDs = make(map[string]struct{})
	c.lastActive = m.now()
}

// Accept records the action id and returns true, or returns false if
// the id was already accepted in the current scope.
func (m *Manager) Accept(actor, actionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.context(actor)
	c.lastActive = m.now()
	if _, dup := c.actionIDs[actionID]; dup {
		return false
	}
	c.actionIDs[actionID] = struct{}{}
	return true
}

// IsRegistered reports membership without recording anything.
func (m *Manager) IsRegistered(actor, actionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.context(actor).actionIDs[actionID]
	return ok
}

// AddMessage appends one exchange message and trims the window until
// its combined content length fits the character budget.
func (m *Manager) AddMessage(actor, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.context(actor)
	c.messages = append(c.messages, domain.Message{Role: role, Content: content})
	c.lastActive = m.now()

	total := 0
	for _, msg := range c.messages {
		total += len(msg.Content)
	}
	for total > m.maxChars && len(c.messages) > 1 {
		total -= len(c.messages[0].Content)
		c.messages = c.messages[1:]
	}
}

// Messages returns a copy of the retained window, oldest first.
func (m *Manager) Messages(actor string) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.context(actor)
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Sweep drops contexts idle longer than the TTL.
func (m *Manager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for actor, c := range m.contexts {
		if now.Sub(c.lastActive) > m.ttl {
			delete(m.contexts, actor)
		}
	}
}
