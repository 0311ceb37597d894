package sse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/xonecas/typecast/internal/constants"
)

const (
	frameSeparator = "\n\n"
	eventPrefix    = "event: "
	dataPrefix     = "data: "
)

// Decoder turns raw response bytes into classified events.
//
// Bytes may be split anywhere, including inside a multi-byte character. Complete
// frames are returned as soon as their terminating blank line arrives; the
// incomplete tail is kept for the next Feed.
type Decoder struct {
	text    transform.Transformer
	pending []byte // undecoded tail of a split UTF-8 sequence
	buf     string // decoded text not yet terminated by a blank line
	drained bool
	logger  zerolog.Logger
}

// NewDecoder creates a decoder ready for the first chunk.
func NewDecoder() *Decoder {
	return &Decoder{
		text:   unicode.UTF8.NewDecoder(),
		logger: log.Logger,
	}
}

// WithLogger sets the logger used for dropped frames.
func (d *Decoder) WithLogger(logger zerolog.Logger) *Decoder {
	d.logger = logger
	return d
}

// Feed decodes one chunk and returns the frames it completed, in order.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.drained {
		return nil
	}
	d.buf += d.decode(chunk, false)
	return d.frames()
}

// Flush signals end of input. Residual bytes are decoded and any trailing frame
// that never saw its blank line is discarded. Later calls to Feed are ignored.
func (d *Decoder) Flush() []Event {
	if d.drained {
		return nil
	}
	d.buf += d.decode(nil, true)
	events := d.frames()
	if strings.TrimSpace(d.buf) != "" {
		d.logger.Debug().Int("bytes", len(d.buf)).Msg("Discarding incomplete trailing frame")
	}
	d.buf = ""
	d.drained = true
	return events
}

// Drained reports whether Flush has been called.
func (d *Decoder) Drained() bool {
	return d.drained
}

// Reset prepares the decoder for a new stream.
func (d *Decoder) Reset() {
	d.text.Reset()
	d.pending = nil
	d.buf = ""
	d.drained = false
}

func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	// Invalid bytes become U+FFFD, so a single source byte can grow to three.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out strings.Builder
	for {
		nDst, nSrc, err := d.text.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return out.String()
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		default:
			d.logger.Warn().Err(err).Msg("UTF-8 decode failed")
			return out.String()
		}
	}
}

func (d *Decoder) frames() []Event {
	var events []Event
	for {
		i := strings.Index(d.buf, frameSeparator)
		if i < 0 {
			return events
		}
		segment := d.buf[:i]
		d.buf = d.buf[i+len(frameSeparator):]

		if ev, ok := d.parse(segment); ok {
			events = append(events, ev)
		}
	}
}

// parse classifies one frame. The second return is false for frames that carry
// nothing to deliver.
func (d *Decoder) parse(segment string) (Event, bool) {
	var ev Event
	for _, line := range strings.Split(segment, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, eventPrefix):
			ev.Type = strings.TrimSpace(line[len(eventPrefix):])
		case strings.HasPrefix(line, dataPrefix):
			// Last data line wins.
			ev.Data = strings.TrimSpace(line[len(dataPrefix):])
		}
	}

	switch ev.Type {
	case constants.EventChunk:
		if ev.Data == "" {
			return ev, false
		}
		content, err := parseChunk(ev.Data)
		if err != nil {
			d.logger.Warn().Err(err).Str("data", ev.Data).Msg("Dropping chunk frame")
			return ev, false
		}
		if content == "" {
			return ev, false
		}
		ev.Kind = KindChunk
		ev.Content = content

	case constants.EventDone:
		ev.Kind = KindDone

	case constants.EventError:
		if ev.Data == "" {
			return ev, false
		}
		ev.Kind = KindError
		ev.Message = parseError(ev.Data)

	case constants.EventStart:
		ev.Kind = KindStart
		ev.Model = gjson.Get(ev.Data, "model").String()

	case "":
		return ev, false

	default:
		ev.Kind = KindIgnored
	}
	return ev, true
}

func parseChunk(data string) (string, error) {
	if !gjson.Valid(data) {
		return "", fmt.Errorf("%w: %q", ErrMalformedChunk, data)
	}
	content := gjson.Get(data, "content")
	if content.Type != gjson.String {
		return "", nil
	}
	return content.String(), nil
}

func parseError(data string) string {
	if gjson.Valid(data) {
		if msg := gjson.Get(data, "error"); msg.Type == gjson.String && msg.String() != "" {
			return msg.String()
		}
	}
	return data
}
