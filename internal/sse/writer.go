package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Writer emits frames in the format Decoder consumes.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. When w is an http.Flusher every frame is flushed immediately.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// WriteEvent writes one frame with payload encoded as JSON.
func (w *Writer) WriteEvent(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// SetHeaders prepares an HTTP response for streaming.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}
