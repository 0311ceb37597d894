// Package api is the HTTP client for the chat server.
package api

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SendRequest is the body of POST /api/chat/send.
type SendRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// Model describes one entry of the server's model catalog.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	ContextWindow int    `json:"context_window"`
}

// ModelList is the response of GET /api/chat/models.
type ModelList struct {
	Models       []Model `json:"models"`
	DefaultModel string  `json:"default_model"`
}

// Has reports whether id is in the list.
func (l *ModelList) Has(id string) bool {
	if l == nil {
		return false
	}
	for _, m := range l.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// HistoryMessage is one entry of GET /api/chat/history.
type HistoryMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ClearResponse is the response of DELETE /api/chat/clear.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the response of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}
