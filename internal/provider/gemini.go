package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface using the Google GenAI SDK.
type GeminiProvider struct {
	name        string
	client      *genai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
}

// NewGeminiClient creates a GenAI client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// NewGemini creates a Gemini provider on an existing client.
func NewGemini(name string, client *genai.Client, model string, temperature float64, limiter *rate.Limiter) *GeminiProvider {
	return &GeminiProvider{
		name:        name,
		client:      client,
		model:       model,
		temperature: temperature,
		limiter:     limiter,
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return p.name
}

func (p *GeminiProvider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *GeminiProvider) config(system string) *genai.GenerateContentConfig {
	temp := float32(p.temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

// Chat sends messages and returns the complete response.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	contents, system := toGeminiContents(messages)
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, p.config(system))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}

// Stream sends messages and returns a channel that streams response chunks.
func (p *GeminiProvider) Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	contents, system := toGeminiContents(messages)
	cfg := p.config(system)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)

		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, cfg) {
			if err != nil {
				log.Debug().Err(err).Str("provider", p.name).Msg("Stream receive failed")
				send(ctx, ch, StreamChunk{Err: err})
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !send(ctx, ch, StreamChunk{Content: text}) {
				return
			}
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()

	return ch, nil
}

// toGeminiContents maps the prompt onto GenAI contents and a system
// instruction. Assistant turns use the model role.
func toGeminiContents(messages []Message) ([]*genai.Content, string) {
	system, turns := splitSystem(messages)

	contents := make([]*genai.Content, len(turns))
	for i, m := range turns {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents[i] = genai.NewContentFromText(m.Content, role)
	}
	return contents, system
}
