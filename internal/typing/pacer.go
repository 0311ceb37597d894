// Package typing reveals queued text one character at a time.
package typing

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xonecas/typecast/internal/constants"
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg advances a pacer by one character.
type TickMsg struct {
	ID  int
	gen int
}

// Pacer is a FIFO character queue drained at a fixed interval into the
// rendered text. Characters are Unicode code points; a grapheme cluster made of
// several code points is revealed over several ticks.
//
// A Pacer is driven by the bubbletea event loop and is not safe for concurrent use.
type Pacer struct {
	id       int
	interval time.Duration
	queue    []rune
	rendered strings.Builder
	active   bool

	// gen invalidates ticks scheduled before the last Stop.
	gen int
}

// New creates an idle pacer. A non-positive interval falls back to the default.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = constants.DefaultTypingInterval
	}
	return &Pacer{
		id:       nextID(),
		interval: interval,
	}
}

// Enqueue appends text to the queue. It may be called whether or not the pacer runs.
func (p *Pacer) Enqueue(text string) {
	if text == "" {
		return
	}
	p.queue = append(p.queue, []rune(text)...)
}

// Start begins ticking. It returns nil if the pacer is already running.
// An empty queue does not stop the pacer.
func (p *Pacer) Start() tea.Cmd {
	if p.active {
		return nil
	}
	p.active = true
	return p.tick()
}

// Stop cancels the pending tick and moves every queued character into the
// rendered text, so Text is final as soon as Stop returns.
func (p *Pacer) Stop() {
	p.active = false
	p.gen++
	if len(p.queue) > 0 {
		p.rendered.WriteString(string(p.queue))
		p.queue = p.queue[:0]
	}
}

// Reset stops the pacer and clears both the queue and the rendered text.
func (p *Pacer) Reset() {
	p.Stop()
	p.queue = nil
	p.rendered.Reset()
}

// Update handles this pacer's ticks. It reports whether the rendered text
// changed and returns the next tick while running.
func (p *Pacer) Update(msg tea.Msg) (bool, tea.Cmd) {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != p.id || tick.gen != p.gen || !p.active {
		return false, nil
	}

	changed := false
	if len(p.queue) > 0 {
		p.rendered.WriteRune(p.queue[0])
		p.queue = p.queue[1:]
		changed = true
	}
	return changed, p.tick()
}

// Text returns the characters revealed so far.
func (p *Pacer) Text() string {
	return p.rendered.String()
}

// QueueLen returns the number of characters still waiting.
func (p *Pacer) QueueLen() int {
	return len(p.queue)
}

// Typing reports whether the pacer is running.
func (p *Pacer) Typing() bool {
	return p.active
}

// Interval returns the tick interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

func (p *Pacer) tick() tea.Cmd {
	id, gen := p.id, p.gen
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return TickMsg{ID: id, gen: gen}
	})
}
