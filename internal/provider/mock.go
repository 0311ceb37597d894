package provider

import (
	"context"
	"strings"
)

// MockProvider is a provider that replays predefined chunks. It backs tests
// and offline demos of the server.
type MockProvider struct {
	name       string
	chunks     []string
	streamErr  error
	chatErr    error
	failAfter  int
	failErr    error
	lastPrompt []Message
}

// NewMock creates a new mock provider that streams chunks in order.
func NewMock(name string, chunks ...string) *MockProvider {
	return &MockProvider{
		name:      name,
		chunks:    chunks,
		failAfter: -1,
	}
}

// WithChatError sets an error to return from Chat.
func (p *MockProvider) WithChatError(err error) *MockProvider {
	p.chatErr = err
	return p
}

// WithStreamError sets an error to return from Stream.
func (p *MockProvider) WithStreamError(err error) *MockProvider {
	p.streamErr = err
	return p
}

// WithFailureAfter makes Stream emit err after n chunks instead of finishing.
func (p *MockProvider) WithFailureAfter(n int, err error) *MockProvider {
	p.failAfter = n
	p.failErr = err
	return p
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return p.name
}

// LastMessages returns the messages of the most recent call.
func (p *MockProvider) LastMessages() []Message {
	return p.lastPrompt
}

// Chat returns the chunks joined or the configured error.
func (p *MockProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	p.lastPrompt = messages
	if p.chatErr != nil {
		return "", p.chatErr
	}
	return strings.Join(p.chunks, ""), nil
}

// Stream returns the predefined chunks followed by Done, or the configured failure.
func (p *MockProvider) Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	p.lastPrompt = messages
	if p.streamErr != nil {
		return nil, p.streamErr
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for i, c := range p.chunks {
			if i == p.failAfter {
				send(ctx, ch, StreamChunk{Err: p.failErr})
				return
			}
			if !send(ctx, ch, StreamChunk{Content: c}) {
				return
			}
		}
		if p.failAfter >= len(p.chunks) {
			send(ctx, ch, StreamChunk{Err: p.failErr})
			return
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()

	return ch, nil
}
