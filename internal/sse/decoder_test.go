package sse

import (
	"errors"
	"strings"
	"testing"
)

func chunkFrame(content string) string {
	return "event: chunk\ndata: {\"content\":\"" + content + "\"}\n\n"
}

func decodeAll(t *testing.T, parts ...[]byte) []Event {
	t.Helper()
	d := NewDecoder()
	var events []Event
	for _, p := range parts {
		events = append(events, d.Feed(p)...)
	}
	return append(events, d.Flush()...)
}

func concatChunks(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Kind == KindChunk {
			sb.WriteString(ev.Content)
		}
	}
	return sb.String()
}

func TestDecoderBasicStream(t *testing.T) {
	stream := "event: start\ndata: {\"role\":\"assistant\",\"model\":\"gemini-2.5-pro\"}\n\n" +
		chunkFrame("Hel") + chunkFrame("lo, ") + chunkFrame("world!") +
		"event: done\ndata: {}\n\n"

	events := decodeAll(t, []byte(stream))
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if events[0].Kind != KindStart || events[0].Model != "gemini-2.5-pro" {
		t.Errorf("expected start event for gemini-2.5-pro, got %+v", events[0])
	}
	if got := concatChunks(events); got != "Hello, world!" {
		t.Errorf("expected 'Hello, world!', got %q", got)
	}
	if events[4].Kind != KindDone || !events[4].Terminal() {
		t.Errorf("expected terminal done event, got %+v", events[4])
	}
}

func TestDecoderEveryByteBoundary(t *testing.T) {
	chunks := []string{"héllo ", "世界", " 🎉 done"}
	var stream string
	for _, c := range chunks {
		stream += chunkFrame(c)
	}
	stream += "event: done\ndata: {}\n\n"
	want := strings.Join(chunks, "")

	raw := []byte(stream)
	for split := 1; split < len(raw); split++ {
		events := decodeAll(t, raw[:split], raw[split:])
		if got := concatChunks(events); got != want {
			t.Fatalf("split at %d: expected %q, got %q", split, want, got)
		}
	}
}

func TestDecoderSingleByteFeeds(t *testing.T) {
	raw := []byte(chunkFrame("ĉu vi?") + chunkFrame("日本"))
	parts := make([][]byte, len(raw))
	for i := range raw {
		parts[i] = raw[i : i+1]
	}

	events := decodeAll(t, parts...)
	if got := concatChunks(events); got != "ĉu vi?日本" {
		t.Errorf("expected 'ĉu vi?日本', got %q", got)
	}
}

func TestDecoderLastDataWins(t *testing.T) {
	stream := "event: chunk\ndata: {\"content\":\"first\"}\ndata: {\"content\":\"second\"}\n\n"

	events := decodeAll(t, []byte(stream))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Content != "second" {
		t.Errorf("expected 'second', got %q", events[0].Content)
	}
}

func TestDecoderMalformedChunkDropped(t *testing.T) {
	stream := chunkFrame("a") + "event: chunk\ndata: not-json\n\n" + chunkFrame("b")

	events := decodeAll(t, []byte(stream))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := concatChunks(events); got != "ab" {
		t.Errorf("expected 'ab', got %q", got)
	}
}

func TestDecoderErrorPayloads(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"json", `{"error":"rate limited"}`, "rate limited"},
		{"raw text", "upstream exploded", "upstream exploded"},
		{"json without error field", `{"code":500}`, `{"code":500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := decodeAll(t, []byte("event: error\ndata: "+tt.data+"\n\n"))
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			ev := events[0]
			if ev.Kind != KindError {
				t.Fatalf("expected error event, got %v", ev.Kind)
			}
			if ev.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, ev.Message)
			}
			var se *StreamError
			if !errors.As(ev.Err(), &se) || se.Message != tt.want {
				t.Errorf("expected StreamError %q, got %v", tt.want, ev.Err())
			}
		})
	}
}

func TestDecoderIncompleteTrailingFrameDiscarded(t *testing.T) {
	stream := chunkFrame("kept") + "event: chunk\ndata: {\"content\":\"lost\"}"

	events := decodeAll(t, []byte(stream))
	if got := concatChunks(events); got != "kept" {
		t.Errorf("expected 'kept', got %q", got)
	}
}

func TestDecoderIgnoresUnknownAndEmptyFrames(t *testing.T) {
	stream := "event: ping\ndata: {}\n\n" +
		": comment line\n\n" +
		"event: chunk\n\n" +
		"event: error\n\n" +
		"event: chunk\ndata: {\"role\":\"assistant\"}\n\n" +
		chunkFrame("x")

	events := decodeAll(t, []byte(stream))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != KindIgnored || events[0].Type != "ping" {
		t.Errorf("expected ignored ping, got %+v", events[0])
	}
	if events[1].Content != "x" {
		t.Errorf("expected chunk 'x', got %+v", events[1])
	}
}

func TestDecoderTrimsCarriageReturns(t *testing.T) {
	stream := "event: chunk\r\ndata: {\"content\":\"crlf\"}\r\n\n"

	events := decodeAll(t, []byte(stream))
	if len(events) != 1 || events[0].Content != "crlf" {
		t.Errorf("expected chunk 'crlf', got %+v", events)
	}
}

func TestDecoderFeedAfterFlush(t *testing.T) {
	d := NewDecoder()
	d.Flush()

	if !d.Drained() {
		t.Error("expected decoder drained after Flush")
	}
	if events := d.Feed([]byte(chunkFrame("late"))); len(events) != 0 {
		t.Errorf("expected no events after Flush, got %d", len(events))
	}

	d.Reset()
	if events := d.Feed([]byte(chunkFrame("again"))); len(events) != 1 {
		t.Errorf("expected 1 event after Reset, got %d", len(events))
	}
}

func TestDecoderFlushSurfacesInvalidTail(t *testing.T) {
	d := NewDecoder()
	// A lone lead byte stays pending until end of input.
	events := d.Feed([]byte("event: chunk\ndata: {\"content\":\"a\xe4"))
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if len(d.pending) != 1 {
		t.Errorf("expected 1 pending byte, got %d", len(d.pending))
	}
	d.Flush()
	if len(d.pending) != 0 {
		t.Errorf("expected pending bytes consumed by Flush, got %d", len(d.pending))
	}
}

func TestParseChunk(t *testing.T) {
	if _, err := parseChunk("{"); !errors.Is(err, ErrMalformedChunk) {
		t.Errorf("expected ErrMalformedChunk, got %v", err)
	}
	content, err := parseChunk(`{"content":42}`)
	if err != nil || content != "" {
		t.Errorf("expected empty content for non-string field, got %q, %v", content, err)
	}
	content, err = parseChunk(`{"content":"line\nbreak"}`)
	if err != nil || content != "line\nbreak" {
		t.Errorf("expected escaped newline decoded, got %q, %v", content, err)
	}
}
