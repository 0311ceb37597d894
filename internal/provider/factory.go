package provider

import (
	"google.golang.org/genai"
	"golang.org/x/time/rate"
)

type OpenAIFactory struct {
	name     string
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
}

func NewOpenAIFactory(name, endpoint, apiKey string, rateLimit float64, rateBurst int) *OpenAIFactory {
	return &OpenAIFactory{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
	}
}

func (f *OpenAIFactory) Name() string { return f.name }

func (f *OpenAIFactory) Create(model string, temperature float64) Provider {
	return NewOpenAI(f.name, f.endpoint, model, f.apiKey, temperature, f.limiter)
}

type GeminiFactory struct {
	name    string
	client  *genai.Client
	limiter *rate.Limiter
}

func NewGeminiFactory(name string, client *genai.Client, rateLimit float64, rateBurst int) *GeminiFactory {
	return &GeminiFactory{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
	}
}

func (f *GeminiFactory) Name() string { return f.name }

func (f *GeminiFactory) Create(model string, temperature float64) Provider {
	return NewGemini(f.name, f.client, model, temperature, f.limiter)
}

// MockFactory hands out mock providers that replay the same chunks.
type MockFactory struct {
	name   string
	chunks []string
}

func NewMockFactory(name string, chunks ...string) *MockFactory {
	return &MockFactory{name: name, chunks: chunks}
}

func (f *MockFactory) Name() string { return f.name }

func (f *MockFactory) Create(model string, temperature float64) Provider {
	return NewMock(f.name, f.chunks...)
}
