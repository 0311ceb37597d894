package sse

import (
	"errors"
	"io"

	"github.com/xonecas/typecast/internal/constants"
)

// Reader pulls events from a stream.
type Reader struct {
	r     io.Reader
	dec   *Decoder
	buf   []byte
	queue []Event
	err   error
}

// NewReader wraps r, typically an HTTP response body.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:   r,
		dec: NewDecoder(),
		buf: make([]byte, constants.StreamReadSize),
	}
}

// Next returns the next event. It returns io.EOF once the stream is drained.
// A read failure is returned as-is, after any events decoded before it.
func (r *Reader) Next() (Event, error) {
	for len(r.queue) == 0 {
		if r.err != nil {
			return Event{}, r.err
		}

		n, err := r.r.Read(r.buf)
		if n > 0 {
			r.queue = append(r.queue, r.dec.Feed(r.buf[:n])...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.queue = append(r.queue, r.dec.Flush()...)
			r.err = io.EOF
		case err != nil:
			r.err = err
		}
	}

	ev := r.queue[0]
	r.queue = r.queue[1:]
	return ev, nil
}
