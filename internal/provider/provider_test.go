package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/goleak"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	reg.RegisterFactory("provider2", NewMockFactory("provider2", "response2"))
	reg.RegisterFactory("provider1", NewMockFactory("provider1", "response1"))

	p, err := reg.Create("provider1", "model", 0.5)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.Name() != "provider1" {
		t.Errorf("expected name=provider1, got %s", p.Name())
	}

	_, err = reg.Create("nonexistent", "model", 0.5)
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}

	names := reg.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(names))
	}
	if names[0] != "provider1" || names[1] != "provider2" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestMockProviderChat(t *testing.T) {
	mock := NewMock("test", "Hello, ", "World!")

	messages := []Message{{Role: "user", Content: "Hi"}}
	response, err := mock.Chat(context.Background(), messages)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if response != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %s", response)
	}
	if got := mock.LastMessages(); len(got) != 1 || got[0].Content != "Hi" {
		t.Errorf("expected last messages to be recorded, got %v", got)
	}
}

func TestMockProviderChatError(t *testing.T) {
	expectedErr := errors.New("chat error")
	mock := NewMock("test").WithChatError(expectedErr)

	_, err := mock.Chat(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
}

func collect(t *testing.T, ch <-chan StreamChunk) (string, bool, error) {
	t.Helper()
	var content string
	var done bool
	var streamErr error
	for chunk := range ch {
		switch {
		case chunk.Err != nil:
			streamErr = chunk.Err
		case chunk.Done:
			done = true
		default:
			content += chunk.Content
		}
	}
	return content, done, streamErr
}

func TestMockProviderStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	mock := NewMock("test", "Streamed ", "response")
	ch, err := mock.Stream(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	content, done, streamErr := collect(t, ch)
	if streamErr != nil {
		t.Fatalf("Stream chunk error: %v", streamErr)
	}
	if content != "Streamed response" {
		t.Errorf("expected 'Streamed response', got %s", content)
	}
	if !done {
		t.Error("expected done=true")
	}
}

func TestMockProviderStreamError(t *testing.T) {
	expectedErr := errors.New("stream error")
	mock := NewMock("test").WithStreamError(expectedErr)

	_, err := mock.Stream(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
}

func TestMockProviderFailureAfter(t *testing.T) {
	defer goleak.VerifyNone(t)

	expectedErr := errors.New("upstream quota")
	tests := []struct {
		name    string
		after   int
		content string
	}{
		{"before first chunk", 0, ""},
		{"mid stream", 1, "a"},
		{"after last chunk", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMock("test", "a", "b").WithFailureAfter(tt.after, expectedErr)
			ch, err := mock.Stream(context.Background(), nil)
			if err != nil {
				t.Fatalf("Stream() error: %v", err)
			}
			content, done, streamErr := collect(t, ch)
			if !errors.Is(streamErr, expectedErr) {
				t.Errorf("expected %v, got %v", expectedErr, streamErr)
			}
			if done {
				t.Error("expected no done chunk after failure")
			}
			if content != tt.content {
				t.Errorf("expected content %q, got %q", tt.content, content)
			}
		})
	}
}

func TestMockProviderStreamCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	mock := NewMock("test", "a", "b", "c")
	ch, err := mock.Stream(ctx, nil)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	<-ch
	cancel()
	for range ch {
	}
}

func TestToOpenAIMessages(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there!"},
	}

	result := toOpenAIMessages(messages)

	if len(result) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result))
	}
	if result[0].Role != "system" {
		t.Errorf("expected role=system, got %s", result[0].Role)
	}
	if result[1].Content != "Hello" {
		t.Errorf("expected content=Hello, got %s", result[1].Content)
	}
}

func TestToOpenAIMessagesMergesSystem(t *testing.T) {
	result := toOpenAIMessages([]Message{
		{Role: "system", Content: "one"},
		{Role: "user", Content: "Hello"},
		{Role: "system", Content: "two"},
	})
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Content != "one\n\ntwo" {
		t.Errorf("expected merged system prompt, got %q", result[0].Content)
	}

	only := toOpenAIMessages([]Message{{Role: "system", Content: "only"}})
	if len(only) != 2 || only[1].Role != "user" || only[1].Content != "Begin." {
		t.Errorf("expected a minimal user message to be added, got %v", only)
	}
}

func TestToGeminiContents(t *testing.T) {
	contents, system := toGeminiContents([]Message{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi"},
	})

	if system != "Be brief." {
		t.Errorf("expected system instruction, got %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" {
		t.Errorf("expected role=user, got %s", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Errorf("expected role=model, got %s", contents[1].Role)
	}
	if contents[1].Parts[0].Text != "Hi" {
		t.Errorf("expected text=Hi, got %s", contents[1].Parts[0].Text)
	}
}

func TestOpenAIProviderStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("openai", srv.URL, "test-model", "test-key", 0.7, nil)
	if p.Name() != "openai" {
		t.Errorf("expected name=openai, got %s", p.Name())
	}

	ch, err := p.Stream(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	content, done, streamErr := collect(t, ch)
	if streamErr != nil {
		t.Fatalf("Stream chunk error: %v", streamErr)
	}
	if content != "Hello" {
		t.Errorf("expected 'Hello', got %q", content)
	}
	if !done {
		t.Error("expected done=true")
	}
}

func TestOpenAIProviderStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAI("openai", srv.URL, "test-model", "bad", 0.7, nil)
	if _, err := p.Stream(context.Background(), []Message{{Role: "user", Content: "Hi"}}); err == nil {
		t.Fatal("expected error for unauthorized stream")
	}
}
