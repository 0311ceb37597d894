// Package server implements the companion chat server: it streams provider
// output to clients as SSE frames and keeps one shared conversation in memory.
//
// Endpoints:
//   - POST   /api/chat/send    - stream a reply to one user message
//   - DELETE /api/chat/clear   - forget the conversation
//   - GET    /api/chat/models  - list accepted models
//   - GET    /api/chat/history - dump the conversation
//   - GET    /health           - liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/constants"
	"github.com/xonecas/typecast/internal/provider"
	"github.com/xonecas/typecast/internal/sse"
)

// MaxRequestBodySize caps the send request body.
const MaxRequestBodySize = 1 << 20

// Options configures a Server.
type Options struct {
	Registry       *provider.Registry
	Provider       string
	Temperature    float64
	Catalog        *Catalog
	History        *History
	AllowedOrigins []string
	StreamTimeout  time.Duration
	// SystemPrompt, when set, leads every prompt sent to the provider.
	SystemPrompt string
}

// Server serves the chat API.
type Server struct {
	registry      *provider.Registry
	provider      string
	temperature   float64
	catalog       *Catalog
	history       *History
	streamTimeout time.Duration
	systemPrompt  string
	mux           *http.ServeMux
	handler       http.Handler
}

// New creates a server. A nil History or Catalog gets an empty one.
func New(opts Options) *Server {
	if opts.History == nil {
		opts.History = NewHistory()
	}
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog(nil, constants.FallbackModel)
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = constants.ProviderStreamTimeout
	}

	s := &Server{
		registry:      opts.Registry,
		provider:      opts.Provider,
		temperature:   opts.Temperature,
		catalog:       opts.Catalog,
		history:       opts.History,
		streamTimeout: opts.StreamTimeout,
		systemPrompt:  opts.SystemPrompt,
		mux:           http.NewServeMux(),
	}
	s.setupRoutes()
	s.handler = Chain(Recovery(), Logging(), CORS(opts.AllowedOrigins))(s.mux)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat/send", s.handleSend)
	s.mux.HandleFunc("DELETE /api/chat/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/chat/models", s.handleModels)
	s.mux.HandleFunc("GET /api/chat/history", s.handleHistory)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// History exposes the conversation store.
func (s *Server) History() *History {
	return s.history
}

type startPayload struct {
	Role  api.Role `json:"role"`
	Model string   `json:"model"`
}

type chunkPayload struct {
	Content string `json:"content"`
}

type donePayload struct {
	Role            api.Role `json:"role"`
	CompleteContent string   `json:"complete_content"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeDetail(w, http.StatusBadRequest, "message must not be blank")
		return
	}
	if utf8.RuneCountInString(req.Message) > constants.MaxMessageLength {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("message exceeds %d characters", constants.MaxMessageLength))
		return
	}

	model := s.catalog.Default()
	if req.Model != "" {
		if !s.catalog.Has(req.Model) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid model: %s. available models: [%s]", req.Model, strings.Join(s.catalog.IDs(), ", ")))
			return
		}
		model = req.Model
	}

	p, err := s.registry.Create(s.provider, model, s.temperature)
	if err != nil {
		log.Error().Err(err).Str("provider", s.provider).Msg("Failed to create provider")
		writeDetail(w, http.StatusInternalServerError, "provider unavailable")
		return
	}

	logger := log.With().Str("exchange", uuid.NewString()).Str("model", model).Logger()
	sse.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	s.stream(r.Context(), sse.NewWriter(w), p, model, message, logger)
}

// stream runs one exchange against p and writes its frames. The user message
// stays in the history only if the exchange completes.
func (s *Server) stream(ctx context.Context, out *sse.Writer, p provider.Provider, model, message string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, s.streamTimeout)
	defer cancel()

	if err := out.WriteEvent(constants.EventStart, startPayload{Role: api.RoleAssistant, Model: model}); err != nil {
		logger.Debug().Err(err).Msg("Client went away before start")
		return
	}

	prompt := s.prompt(message)
	s.history.Append(api.RoleUser, message)

	fail := func(err error) {
		s.history.DropLastUser()
		logger.Warn().Err(err).Msg("Exchange failed")
		out.WriteEvent(constants.EventError, errorPayload{Error: fmt.Sprintf("provider request failed: %v", err)})
	}

	chunks, err := p.Stream(ctx, prompt)
	if err != nil {
		fail(err)
		return
	}

	var complete strings.Builder
	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			fail(chunk.Err)
			return
		case chunk.Done:
			content := complete.String()
			s.history.Append(api.RoleAssistant, content)
			logger.Debug().Int("bytes", len(content)).Msg("Exchange complete")
			out.WriteEvent(constants.EventDone, donePayload{Role: api.RoleAssistant, CompleteContent: content})
			return
		}
		complete.WriteString(chunk.Content)
		if err := out.WriteEvent(constants.EventChunk, chunkPayload{Content: chunk.Content}); err != nil {
			cancel()
			for range chunks {
			}
			s.history.DropLastUser()
			logger.Debug().Err(err).Msg("Client went away mid-stream")
			return
		}
	}

	// The provider gave up without a terminal chunk: deadline or disconnect.
	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}
	fail(errors.New("stream ended unexpectedly"))
}

// prompt is the system prompt, the shared history and then message.
func (s *Server) prompt(message string) []provider.Message {
	history := s.history.Messages()
	msgs := make([]provider.Message, 0, len(history)+2)
	if s.systemPrompt != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: s.systemPrompt})
	}
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(msgs, provider.Message{Role: string(api.RoleUser), Content: message})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.history.Clear()
	writeJSON(w, http.StatusOK, api.ClearResponse{Success: true, Message: "history cleared"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Messages []api.HistoryMessage `json:"messages"`
	}{Messages: s.history.Messages()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy", Provider: s.provider})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// writeDetail writes an error body in the {"detail": ...} shape clients parse.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
