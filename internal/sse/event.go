// Package sse decodes and encodes the server-sent event frames exchanged with the chat server.
package sse

import (
	"errors"

	"github.com/xonecas/typecast/internal/constants"
)

// ErrMalformedChunk is returned when a chunk payload is not valid JSON.
var ErrMalformedChunk = errors.New("malformed chunk payload")

// Kind classifies a decoded frame.
type Kind int

const (
	// KindIgnored is any frame type the client does not act on.
	KindIgnored Kind = iota
	// KindStart announces the model serving the exchange.
	KindStart
	// KindChunk carries a piece of assistant text.
	KindChunk
	// KindDone signals graceful termination.
	KindDone
	// KindError is fatal to the exchange.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return constants.EventStart
	case KindChunk:
		return constants.EventChunk
	case KindDone:
		return constants.EventDone
	case KindError:
		return constants.EventError
	default:
		return "ignored"
	}
}

// Event is one classified frame.
type Event struct {
	Kind Kind
	// Type is the raw value of the event: line.
	Type string
	// Data is the raw value of the last data: line.
	Data string

	Content string // KindChunk
	Message string // KindError
	Model   string // KindStart
}

// Terminal reports whether the event ends the exchange.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

// Err returns the stream error carried by a KindError event, nil otherwise.
func (e Event) Err() error {
	if e.Kind != KindError {
		return nil
	}
	return &StreamError{Message: e.Message}
}

// StreamError is an error frame sent by the server.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}
