package server

import (
	"sync"
	"time"

	"github.com/xonecas/typecast/internal/api"
)

// History is the in-memory conversation shared by all clients.
type History struct {
	mu       sync.Mutex
	messages []api.HistoryMessage
	now      func() time.Time
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{now: time.Now}
}

// Append records a message and returns it.
func (h *History) Append(role api.Role, content string) api.HistoryMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := api.HistoryMessage{Role: role, Content: content, Timestamp: h.now().UTC()}
	h.messages = append(h.messages, msg)
	return msg
}

// DropLastUser removes the trailing message if it was written by the user.
// A failed exchange leaves no trace this way.
func (h *History) DropLastUser() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.messages); n > 0 && h.messages[n-1].Role == api.RoleUser {
		h.messages = h.messages[:n-1]
	}
}

// Messages returns a copy of the history.
func (h *History) Messages() []api.HistoryMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]api.HistoryMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of recorded messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Clear forgets every message.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
