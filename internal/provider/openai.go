package provider

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIProvider implements the Provider interface for any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
}

// NewOpenAI creates a new OpenAI-compatible provider.
func NewOpenAI(name, endpoint, model, apiKey string, temperature float64, limiter *rate.Limiter) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		config.BaseURL = endpoint
	}

	return &OpenAIProvider{
		name:        name,
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		limiter:     limiter,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) request(messages []Message) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(p.temperature),
	}
}

func (p *OpenAIProvider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Chat sends messages and returns the complete response.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	resp, err := p.client.CreateChatCompletion(ctx, p.request(messages))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream sends messages and returns a channel that streams response chunks.
func (p *OpenAIProvider) Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	req := p.request(messages)
	req.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamChunk{Done: true})
				return
			}
			if err != nil {
				log.Debug().Err(err).Str("provider", p.name).Msg("Stream receive failed")
				send(ctx, ch, StreamChunk{Err: err})
				return
			}

			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, ch, StreamChunk{Content: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return ch, nil
}
