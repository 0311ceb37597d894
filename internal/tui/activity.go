package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/typecast/internal/chat"
)

const (
	activityFrame = 80 * time.Millisecond
	activityWidth = 12
)

// Activity is what the exchange in flight is doing, as shown in the status line.
type Activity int

const (
	ActivityIdle      Activity = iota
	ActivityWaiting            // request sent, no frame yet
	ActivityReceiving          // reading the event stream
)

// activityFor maps a session state onto an indicator activity.
func activityFor(state chat.State) Activity {
	switch state {
	case chat.StateSending:
		return ActivityWaiting
	case chat.StateStreaming, chat.StateSettling:
		return ActivityReceiving
	default:
		return ActivityIdle
	}
}

// activityTickMsg advances the indicator. seq ties it to one run of ticks.
type activityTickMsg struct{ seq int }

// indicator is a bouncing bar that only ticks while an exchange is active.
type indicator struct {
	activity Activity
	frame    int
	seq      int
}

// set switches the activity and returns the command that starts ticking
// when the indicator leaves idle.
func (i *indicator) set(a Activity) tea.Cmd {
	if a == i.activity {
		return nil
	}
	wasIdle := i.activity == ActivityIdle
	i.activity = a
	if a == ActivityIdle {
		i.frame = 0
		return nil
	}
	if !wasIdle {
		return nil
	}
	i.seq++
	return i.tick()
}

func (i indicator) tick() tea.Cmd {
	seq := i.seq
	return tea.Tick(activityFrame, func(time.Time) tea.Msg {
		return activityTickMsg{seq: seq}
	})
}

func (i indicator) update(msg activityTickMsg) (indicator, tea.Cmd) {
	if msg.seq != i.seq || i.activity == ActivityIdle {
		return i, nil
	}
	i.frame++
	return i, i.tick()
}

// position is where the ball sits on the bar for the current frame.
func (i indicator) position() int {
	period := 2 * (activityWidth - 1)
	p := i.frame % period
	if p >= activityWidth {
		p = period - p
	}
	return p
}

func (i indicator) style() (lipgloss.Style, string) {
	switch i.activity {
	case ActivityWaiting:
		return lipgloss.NewStyle().Foreground(colorAccent).Bold(true), "WAIT"
	case ActivityReceiving:
		return lipgloss.NewStyle().Foreground(colorAssistant).Bold(true), "RECV"
	default:
		return lipgloss.NewStyle().Foreground(colorMuted), "IDLE"
	}
}

func (i indicator) view() string {
	style, label := i.style()

	var bar strings.Builder
	bar.WriteString("▐")
	pos := i.position()
	for n := range activityWidth {
		if i.activity != ActivityIdle && n >= pos-1 && n <= pos+1 {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	bar.WriteString("▌")

	return style.Render(label + " " + bar.String())
}

// compactView drops the bar for narrow terminals.
func (i indicator) compactView() string {
	style, label := i.style()
	glyph := "◇"
	if i.activity != ActivityIdle && i.frame%2 == 0 {
		glyph = "◆"
	}
	return style.Render(glyph + " " + label)
}
