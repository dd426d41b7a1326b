package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandon/mcp-mailbox/internal/tools"
)

// ConversationState tracks the lifecycle of one client session.
type ConversationState int

const (
	StateUninitialized ConversationState = iota
	StateActive
	StateClosed
)

// Conversation is one client's logical session against the server: a
// stable id, its own bound tool registry, and a lifecycle state. A
// closed conversation is terminal; no new dispatch is accepted for it,
// though in-flight calls run to completion and their results are
// discarded.
type Conversation struct {
	ID    string
	Tools *tools.Registry

	mu       sync.Mutex
	state    ConversationState
	lastSeen time.Time
}

// State returns the current lifecycle state.
func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activate moves an uninitialized conversation to active. Closed is
// terminal and stays closed.
func (c *Conversation) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUninitialized {
		c.state = StateActive
	}
}

// Close moves the conversation to its terminal state.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

// Closed reports whether the conversation has been torn down.
func (c *Conversation) Closed() bool {
	return c.State() == StateClosed
}

// Touch records client activity, deferring the idle sweep.
func (c *Conversation) Touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Conversation) lastSeenBefore(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen.Before(cutoff)
}

// SessionRegistry owns the live conversations keyed by session id.
type SessionRegistry struct {
	mu    sync.Mutex
	conns map[string]*Conversation
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		conns: make(map[string]*Conversation),
	}
}

// Create makes a new conversation with a fresh id and the given tool
// registry, and publishes it.
func (r *SessionRegistry) Create(reg *tools.Registry) *Conversation {
	conv := &Conversation{
		ID:       uuid.NewString(),
		Tools:    reg,
		state:    StateUninitialized,
		lastSeen: time.Now(),
	}

	r.mu.Lock()
	r.conns[conv.ID] = conv
	r.mu.Unlock()
	return conv
}

// Get looks up a conversation by session id.
func (r *SessionRegistry) Get(id string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conns[id]
	return conv, ok
}

// Remove closes the conversation and drops it from the registry. It
// reports whether the id was known.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	conv, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok {
		conv.Close()
	}
	return ok
}

// Sweep closes and removes conversations with no activity since the
// cutoff, so clients that vanish without a DELETE do not accumulate.
// It reports how many were removed.
func (r *SessionRegistry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	var stale []*Conversation
	for id, conv := range r.conns {
		if conv.lastSeenBefore(cutoff) {
			stale = append(stale, conv)
			delete(r.conns, id)
		}
	}
	r.mu.Unlock()

	for _, conv := range stale {
		conv.Close()
	}
	return len(stale)
}

// CloseAll tears down every conversation, used on server shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Conversation)
	r.mu.Unlock()

	for _, conv := range conns {
		conv.Close()
	}
}
