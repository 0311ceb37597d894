// Package render turns message content into terminal text.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/rs/zerolog/log"
)

// DefaultStyle is the glamour style used for settled messages.
const DefaultStyle = "dark"

const maxCached = 256

type cacheKey struct {
	width   int
	content string
}

// Renderer renders Markdown with one glamour renderer per width and memoizes
// the output. Messages are immutable once settled, so each one is rendered once
// per width. Not safe for concurrent use.
type Renderer struct {
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     map[cacheKey]string
}

// New creates a renderer using a glamour standard style name.
func New(style string) *Renderer {
	if style == "" {
		style = DefaultStyle
	}
	return &Renderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[cacheKey]string),
	}
}

// Markdown renders content wrapped to width. On a glamour failure the wrapped
// plain text is returned.
func (r *Renderer) Markdown(content string, width int) string {
	if width < 1 {
		width = 1
	}
	key := cacheKey{width: width, content: content}
	if out, ok := r.cache[key]; ok {
		return out
	}

	out, err := r.markdown(content, width)
	if err != nil {
		log.Debug().Err(err).Msg("Markdown render failed, using plain text")
		out = Plain(content, width)
	}

	if len(r.cache) >= maxCached {
		clear(r.cache)
	}
	r.cache[key] = out
	return out
}

func (r *Renderer) markdown(content string, width int) (string, error) {
	tr, ok := r.renderers[width]
	if !ok {
		var err error
		tr, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return "", err
		}
		r.renderers[width] = tr
	}
	out, err := tr.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// CacheSize returns the number of memoized renders.
func (r *Renderer) CacheSize() int {
	return len(r.cache)
}

// Plain wraps text at word boundaries, hard-wrapping words longer than width.
// It is used for text that is still being revealed, where Markdown syntax may
// be incomplete.
func Plain(text string, width int) string {
	if width < 1 {
		return text
	}
	return wrap.String(wordwrap.String(text, width), width)
}
