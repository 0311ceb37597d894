// Package scroll keeps the chat viewport pinned to its newest content until the
// user scrolls away.
package scroll

import (
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"

	"github.com/xonecas/typecast/internal/constants"
)

// Options tunes a Policy. Zero values fall back to the package defaults.
type Options struct {
	// Threshold is the sentinel visibility ratio that counts as "at bottom".
	Threshold float64
	// QuietWindow is how long a user scroll keeps IsUserScrolling true.
	QuietWindow time.Duration
	// Debounce coalesces DebouncedAutoScroll calls.
	Debounce time.Duration
	// MaxWait is the longest a run of calls can defer the scroll. It is never
	// shorter than Debounce.
	MaxWait time.Duration
	// SentinelRows is the height of the marker appended after content.
	SentinelRows    int
	SpringFrequency float64
	SpringDamping   float64
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = constants.DefaultBottomThreshold
	}
	if o.QuietWindow <= 0 {
		o.QuietWindow = constants.DefaultScrollQuietWindow
	}
	if o.Debounce <= 0 {
		o.Debounce = constants.DefaultAutoScrollDebounce
	}
	if o.MaxWait <= 0 {
		o.MaxWait = constants.DefaultAutoScrollMaxWait
	}
	o.MaxWait = max(o.MaxWait, o.Debounce)
	if o.SentinelRows <= 0 {
		o.SentinelRows = constants.DefaultSentinelRows
	}
	if o.SpringFrequency <= 0 {
		o.SpringFrequency = constants.DefaultSpringFrequency
	}
	if o.SpringDamping <= 0 {
		o.SpringDamping = constants.DefaultSpringDamping
	}
	return o
}

// KeyMap defines the user scroll bindings.
type KeyMap struct {
	PageUp   key.Binding
	PageDown key.Binding
	LineUp   key.Binding
	LineDown key.Binding
	Bottom   key.Binding
}

// DefaultKeyMap is the binding set used by NewPolicy.
var DefaultKeyMap = KeyMap{
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "page down"),
	),
	LineUp: key.NewBinding(
		key.WithKeys("ctrl+up"),
		key.WithHelp("Ctrl+↑", "line up"),
	),
	LineDown: key.NewBinding(
		key.WithKeys("ctrl+down"),
		key.WithHelp("Ctrl+↓", "line down"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("Ctrl+G", "jump to bottom"),
	),
}

const wheelDelta = 3

var lastID int64

type (
	bottomMsg struct {
		id     int
		smooth bool
	}
	quietMsg struct {
		id, gen int
	}
	debounceMsg struct {
		id, gen int
	}
	frameMsg struct {
		id, gen int
	}
)

// Policy owns the chat viewport and decides when it follows new content.
//
// It tracks two signals: whether the sentinel rows after the content are inside
// the visible region (IsAtBottom), and whether the user has scrolled within the
// quiet window (IsUserScrolling). Programmatic scrolls never count as user
// scrolls. Each timer uses its own generation counter, so the quiet window,
// the debounce and the animation cancel independently.
type Policy struct {
	id   int
	opts Options
	keys KeyMap
	vp   viewport.Model

	userScrolling bool
	quietGen      int
	debounceGen   int
	// debounceSince is when the oldest unserved auto-scroll request arrived.
	debounceSince time.Time

	spring    harmonica.Spring
	animGen   int
	animating bool
	pos, vel  float64

	scrolls int
	closed  bool

	now func() time.Time
}

// NewPolicy creates a policy with an empty viewport.
func NewPolicy(opts Options) *Policy {
	opts = opts.withDefaults()
	return &Policy{
		id:     int(atomic.AddInt64(&lastID, 1)),
		opts:   opts,
		keys:   DefaultKeyMap,
		vp:     viewport.New(0, 0),
		spring: harmonica.NewSpring(harmonica.FPS(constants.ScrollAnimationFPS), opts.SpringFrequency, opts.SpringDamping),
		now:    time.Now,
	}
}

// Keys returns the user scroll bindings, for help rendering.
func (p *Policy) Keys() KeyMap {
	return p.keys
}

// SetSize resizes the viewport. A viewport that was at its bottom stays there.
func (p *Policy) SetSize(width, height int) {
	wasAtBottom := p.IsAtBottom()
	p.vp.Width = width
	p.vp.Height = height
	if wasAtBottom {
		p.vp.GotoBottom()
	}
}

// SetContent replaces the viewport content. The scroll position is untouched;
// callers follow up with ScrollToBottom or DebouncedAutoScroll.
func (p *Policy) SetContent(content string) {
	p.vp.SetContent(content + strings.Repeat("\n", p.opts.SentinelRows))
}

// View renders the visible region.
func (p *Policy) View() string {
	return p.vp.View()
}

// TotalLines returns the content height including the sentinel rows.
func (p *Policy) TotalLines() int {
	return p.vp.TotalLineCount()
}

// YOffset returns the index of the first visible line.
func (p *Policy) YOffset() int {
	return p.vp.YOffset
}

// Height returns the viewport height.
func (p *Policy) Height() int {
	return p.vp.Height
}

// Scrolls returns how many programmatic scrolls have been performed.
func (p *Policy) Scrolls() int {
	return p.scrolls
}

// IntersectionRatio returns the visible fraction of the sentinel rows.
func (p *Policy) IntersectionRatio() float64 {
	total := p.vp.TotalLineCount()
	sentinelTop := total - p.opts.SentinelRows
	if sentinelTop < 0 {
		sentinelTop = 0
	}
	visibleTop := p.vp.YOffset
	visibleBottom := p.vp.YOffset + p.vp.Height

	visible := min(total, visibleBottom) - max(sentinelTop, visibleTop)
	if visible <= 0 {
		return 0
	}
	return float64(visible) / float64(p.opts.SentinelRows)
}

// IsAtBottom reports whether the sentinel is visible past the threshold.
func (p *Policy) IsAtBottom() bool {
	ratio := p.IntersectionRatio()
	return ratio > 0 && ratio >= p.opts.Threshold
}

// IsUserScrolling reports whether a user scroll happened within the quiet window.
func (p *Policy) IsUserScrolling() bool {
	return p.userScrolling
}

// Animating reports whether a smooth scroll is in flight.
func (p *Policy) Animating() bool {
	return p.animating
}

// HandleInput applies a user scroll key or mouse wheel event. It reports
// whether msg was a scroll input.
func (p *Policy) HandleInput(msg tea.Msg) (bool, tea.Cmd) {
	if p.closed {
		return false, nil
	}

	delta := 0
	toBottom := false
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.PageUp):
			delta = -max(1, p.vp.Height)
		case key.Matches(msg, p.keys.PageDown):
			delta = max(1, p.vp.Height)
		case key.Matches(msg, p.keys.LineUp):
			delta = -1
		case key.Matches(msg, p.keys.LineDown):
			delta = 1
		case key.Matches(msg, p.keys.Bottom):
			toBottom = true
		default:
			return false, nil
		}
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			delta = -wheelDelta
		case tea.MouseButtonWheelDown:
			delta = wheelDelta
		default:
			return false, nil
		}
	default:
		return false, nil
	}

	p.cancelAnimation()
	if toBottom {
		p.vp.GotoBottom()
	} else {
		p.vp.SetYOffset(p.vp.YOffset + delta)
	}
	return true, p.markUserScroll()
}

// ScrollToBottom moves to the maximum offset once the current update has been
// rendered, instantly or with a spring animation.
func (p *Policy) ScrollToBottom(smooth bool) tea.Cmd {
	if p.closed {
		return nil
	}
	id := p.id
	return func() tea.Msg {
		return bottomMsg{id: id, smooth: smooth}
	}
}

// DebouncedAutoScroll schedules a smooth ScrollToBottom after the debounce
// window. Calls inside the window collapse into one scroll, but a run of calls
// longer than MaxWait scrolls at once so a steadily typed reply is followed.
// Nothing happens while the user is scrolling, checked both now and when the
// window ends.
func (p *Policy) DebouncedAutoScroll() tea.Cmd {
	if p.closed || p.userScrolling {
		return nil
	}
	now := p.now()
	if p.debounceSince.IsZero() {
		p.debounceSince = now
	}
	p.debounceGen++
	id, gen := p.id, p.debounceGen

	if now.Sub(p.debounceSince) >= p.opts.MaxWait {
		return func() tea.Msg {
			return debounceMsg{id: id, gen: gen}
		}
	}
	wait := min(p.opts.Debounce, p.opts.MaxWait-now.Sub(p.debounceSince))
	return tea.Tick(wait, func(time.Time) tea.Msg {
		return debounceMsg{id: id, gen: gen}
	})
}

// Update handles the policy's own timer and scroll messages.
func (p *Policy) Update(msg tea.Msg) tea.Cmd {
	if p.closed {
		return nil
	}

	switch msg := msg.(type) {
	case bottomMsg:
		if msg.id != p.id {
			return nil
		}
		return p.scrollToBottom(msg.smooth)

	case debounceMsg:
		if msg.id != p.id || msg.gen != p.debounceGen || p.userScrolling {
			return nil
		}
		p.debounceSince = time.Time{}
		return p.scrollToBottom(true)

	case quietMsg:
		if msg.id == p.id && msg.gen == p.quietGen {
			p.userScrolling = false
		}
		return nil

	case frameMsg:
		if msg.id != p.id || msg.gen != p.animGen || !p.animating {
			return nil
		}
		return p.step()
	}
	return nil
}

// Close cancels every pending timer and animation. Later messages are ignored.
func (p *Policy) Close() {
	p.closed = true
	p.cancelAnimation()
	p.quietGen++
	p.debounceGen++
	p.debounceSince = time.Time{}
	p.userScrolling = false
}

func (p *Policy) maxOffset() int {
	return max(0, p.vp.TotalLineCount()-p.vp.Height)
}

func (p *Policy) scrollToBottom(smooth bool) tea.Cmd {
	p.scrolls++
	if !smooth {
		p.cancelAnimation()
		p.vp.GotoBottom()
		return nil
	}
	if p.animating {
		// The running animation retargets on its next frame.
		return nil
	}
	if p.vp.YOffset >= p.maxOffset() {
		return nil
	}
	p.animating = true
	p.animGen++
	p.pos = float64(p.vp.YOffset)
	p.vel = 0
	return p.frame()
}

func (p *Policy) step() tea.Cmd {
	target := float64(p.maxOffset())
	p.pos, p.vel = p.spring.Update(p.pos, p.vel, target)

	if math.Abs(target-p.pos) < 0.5 && math.Abs(p.vel) < 0.5 {
		p.vp.SetYOffset(int(target))
		p.animating = false
		return nil
	}
	p.vp.SetYOffset(int(math.Round(p.pos)))
	return p.frame()
}

func (p *Policy) frame() tea.Cmd {
	id, gen := p.id, p.animGen
	return tea.Tick(time.Second/constants.ScrollAnimationFPS, func(time.Time) tea.Msg {
		return frameMsg{id: id, gen: gen}
	})
}

func (p *Policy) cancelAnimation() {
	p.animating = false
	p.animGen++
}

func (p *Policy) markUserScroll() tea.Cmd {
	p.userScrolling = true
	p.debounceSince = time.Time{}
	p.quietGen++
	id, gen := p.id, p.quietGen
	return tea.Tick(p.opts.QuietWindow, func(time.Time) tea.Msg {
		return quietMsg{id: id, gen: gen}
	})
}
