// Package chat drives one request/response exchange at a time, from the
// outbound send to the settled assistant message.
package chat

import (
	"errors"
	"time"

	"github.com/xonecas/typecast/internal/api"
)

var (
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong is returned by Send when the input exceeds the server limit.
	ErrMessageTooLong = errors.New("message is too long")
	// ErrExchangeInFlight is returned while a previous exchange or clear has not settled.
	ErrExchangeInFlight = errors.New("an exchange is already in flight")
)

// State is the orchestrator's position in the exchange lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateSettling
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettling:
		return "settling"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Message is one entry of the conversation.
type Message struct {
	Role      api.Role
	Content   string
	CreatedAt time.Time
}
