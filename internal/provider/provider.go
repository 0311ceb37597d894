// Package provider defines the LLM provider interface and implementations.
package provider

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrProviderNotFound is returned when a requested provider doesn't exist.
var ErrProviderNotFound = errors.New("provider not found")

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// splitSystem separates the system messages, joined by blank lines, from
// the conversation turns.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// Chat sends messages and returns the complete response.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Stream sends messages and returns a channel that streams response chunks.
	// The channel is closed after a chunk with Done or Err set, or when ctx ends.
	Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)
}

// StreamChunk represents a chunk of streamed response.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// Factory creates providers bound to a model.
type Factory interface {
	Name() string
	Create(model string, temperature float64) Provider
}

// Registry holds available provider factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// RegisterFactory adds a factory under name, replacing any previous one.
func (r *Registry) RegisterFactory(name string, f Factory) {
	r.factories[name] = f
}

// Create builds a provider from the named factory.
func (r *Registry) Create(name, model string, temperature float64) (Provider, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return f.Create(model, temperature), nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// send delivers chunk unless ctx ends first.
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
