package webhook

import (
	"slices"
	"sync"
	"time"

	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/metrics"
)

// Conversation store defaults.
const (
	DefaultMaxTurns = 20
	DefaultMaxChats = 10000
	DefaultIdleTTL  = 30 * time.Minute
)

// ConversationConfig bounds the in-memory conversation store.
type ConversationConfig struct {
	// MaxTurns is how many of the most recent turns are kept per chat.
	MaxTurns int
	// MaxChats caps the number of chats held; the least recently active is
	// evicted first.
	MaxChats int
	// IdleTTL forgets a conversation this long after its last turn.
	IdleTTL time.Duration
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Conversations holds the recent history of each LINE chat. The dialogue
// controller is stateless, so this is the only place a LINE conversation
// lives; it does not survive a restart.
type Conversations struct {
	mu    sync.Mutex
	chats map[string]*conversation
	cfg   ConversationConfig
}

type conversation struct {
	turns []dialogue.Turn
	seen  time.Time
}

// NewConversations creates an empty store.
func NewConversations(cfg ConversationConfig) *Conversations {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxChats <= 0 {
		cfg.MaxChats = DefaultMaxChats
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Conversations{
		chats: make(map[string]*conversation),
		cfg:   cfg,
	}
}

// Get returns a copy of the chat's history, or nil when there is none or it
// has gone idle.
func (c *Conversations) Get(chatID string) []dialogue.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.chats[chatID]
	if !ok {
		return nil
	}
	if c.expired(conv) {
		delete(c.chats, chatID)
		return nil
	}
	return slices.Clone(conv.turns)
}

// Put replaces the chat's history, keeping only the most recent turns.
func (c *Conversations) Put(chatID string, turns []dialogue.Turn) {
	if chatID == "" {
		return
	}
	if n := len(turns); n > c.cfg.MaxTurns {
		turns = turns[n-c.cfg.MaxTurns:]
	}

	c.mu.Lock()
	if _, ok := c.chats[chatID]; !ok && len(c.chats) >= c.cfg.MaxChats {
		c.evictOldest()
	}
	c.chats[chatID] = &conversation{turns: slices.Clone(turns), seen: c.cfg.Now()}
	n := len(c.chats)
	c.mu.Unlock()

	c.cfg.Metrics.SetActiveConversations("line", n)
}

// Reset forgets the chat's history.
func (c *Conversations) Reset(chatID string) {
	c.mu.Lock()
	delete(c.chats, chatID)
	n := len(c.chats)
	c.mu.Unlock()

	c.cfg.Metrics.SetActiveConversations("line", n)
}

// Len returns the number of chats held, idle ones included until swept.
func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chats)
}

// Sweep drops idle conversations and returns how many were removed.
func (c *Conversations) Sweep() int {
	c.mu.Lock()
	removed := 0
	for id, conv := range c.chats {
		if c.expired(conv) {
			delete(c.chats, id)
			removed++
		}
	}
	n := len(c.chats)
	c.mu.Unlock()

	c.cfg.Metrics.SetActiveConversations("line", n)
	return removed
}

// expired must be called with mu held.
func (c *Conversations) expired(conv *conversation) bool {
	return c.cfg.Now().Sub(conv.seen) > c.cfg.IdleTTL
}

// evictOldest must be called with mu held.
func (c *Conversations) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, conv := range c.chats {
		if oldestID == "" || conv.seen.Before(oldest) {
			oldestID, oldest = id, conv.seen
		}
	}
	delete(c.chats, oldestID)
}
