package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/project-memory/internal/model"
)

// DefaultConversationSize is how many turns a Conversation keeps.
const DefaultConversationSize = 20

// Conversation is a bounded in-process buffer of recent turns. The oldest
// turn is dropped once the buffer is full.
type Conversation struct {
	mu      sync.Mutex
	max     int
	entries []model.ConversationEntry
	now     func() time.Time
}

// NewConversation returns a buffer holding up to max turns.
func NewConversation(max int) *Conversation {
	if max <= 0 {
		max = DefaultConversationSize
	}
	return &Conversation{max: max, now: time.Now}
}

func (c *Conversation) Add(role model.Role, content string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, model.ConversationEntry{
		Role:      role,
		Content:   content,
		Timestamp: c.now().UTC(),
		Metadata:  metadata,
	})
	if over := len(c.entries) - c.max; over > 0 {
		c.entries = append(c.entries[:0:0], c.entries[over:]...)
	}
}

// Recent returns up to n of the latest turns, oldest first. n <= 0 returns
// all of them.
func (c *Conversation) Recent(n int) []model.ConversationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if n > 0 && n < len(c.entries) {
		start = len(c.entries) - n
	}
	return append([]model.ConversationEntry(nil), c.entries[start:]...)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Format renders the last n turns as "role: content" lines.
func (c *Conversation) Format(n int) string {
	var b strings.Builder
	for _, e := range c.Recent(n) {
		fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
	}
	return b.String()
}
