package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/xonecas/typecast/internal/constants"
)

// Client talks to the chat server at BaseURL.
type Client struct {
	BaseURL string

	// HTTPClient serves the short request/response calls.
	HTTPClient *http.Client
	// StreamClient serves send; it has no overall timeout.
	StreamClient *http.Client
}

// New creates a client. A non-positive timeout falls back to the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = constants.RequestTimeout
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: timeout},
		StreamClient: &http.Client{},
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP error! status: %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP error! status: %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Send posts a message and returns the open event stream. The caller closes it.
func (c *Client) Send(ctx context.Context, req SendRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode send: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build send: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.StreamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseError("/api/chat/send", resp)
	}

	log.Debug().Str("model", req.Model).Int("length", len(req.Message)).Msg("Stream opened")
	return resp.Body, nil
}

// Clear deletes the server-side conversation history.
func (c *Client) Clear(ctx context.Context) error {
	var out ClearResponse
	return c.do(ctx, http.MethodDelete, "/api/chat/clear", &out)
}

// Models fetches the model catalog.
func (c *Client) Models(ctx context.Context) (*ModelList, error) {
	var out ModelList
	if err := c.do(ctx, http.MethodGet, "/api/chat/models", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the server-side conversation history.
func (c *Client) History(ctx context.Context) ([]HistoryMessage, error) {
	var out struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// parseError extracts {"detail": ...} or {"error": ...} from an error body,
// falling back to the raw text, or the status text when the body cannot be
// read. Validation errors carry detail as a list; the first entry's msg is used.
func parseError(endpoint string, resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		log.Debug().Err(err).Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("Failed to read error body")
		data = []byte(http.StatusText(resp.StatusCode))
	}
	msg := strings.TrimSpace(string(data))
	if gjson.Valid(msg) {
		if detail := gjson.Get(msg, "detail"); detail.Exists() {
			msg = detail.String()
			if first := detail.Get("0.msg"); detail.IsArray() && first.Exists() {
				msg = first.String()
			}
		} else if e := gjson.Get(msg, "error"); e.Exists() {
			msg = e.String()
		}
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    msg,
	}
}
