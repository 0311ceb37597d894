package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	scrollbarThumb = "█"
	scrollbarTrack = "│"
)

var (
	scrollTrackStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	scrollThumbStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	scrollDetachedStyle = lipgloss.NewStyle().Foreground(colorAccent)
)

// scrollbarState is the slice of scroll state the scrollbar draws.
type scrollbarState struct {
	height int // viewport rows
	total  int // content rows
	offset int // first visible row
	// detached is set while the viewport is away from the bottom, so
	// new text will not scroll into view on its own.
	detached bool
}

// thumb returns the thumb position and size in rows. size is 0 when the
// content fits.
func (s scrollbarState) thumb() (pos, size int) {
	if s.total <= s.height {
		return 0, 0
	}
	size = min(max(s.height*s.height/s.total, 1), s.height)

	maxOffset := s.total - s.height
	offset := min(max(s.offset, 0), maxOffset)
	// Round so the thumb touches the last row exactly at the bottom.
	pos = (offset*(s.height-size) + maxOffset/2) / maxOffset
	return pos, size
}

// renderScrollbar draws a one column scrollbar for the conversation viewport.
func renderScrollbar(s scrollbarState) string {
	if s.height <= 0 {
		return ""
	}

	thumbStyle := scrollThumbStyle
	if s.detached {
		thumbStyle = scrollDetachedStyle
	}

	pos, size := s.thumb()
	lines := make([]string, s.height)
	for i := range lines {
		if size > 0 && i >= pos && i < pos+size {
			lines[i] = thumbStyle.Render(scrollbarThumb)
		} else {
			lines[i] = scrollTrackStyle.Render(scrollbarTrack)
		}
	}
	return strings.Join(lines, "\n")
}
