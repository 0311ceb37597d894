package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xonecas/typecast/internal/constants"
)

var historyKeys = struct {
	Up   key.Binding
	Down key.Binding
}{
	Up:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous sent message")),
	Down: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next sent message")),
}

// recall remembers sent messages, oldest first. depth counts steps back from
// the newest entry; 0 means the user is editing their own draft.
type recall struct {
	sent  []string
	depth int
	draft string
}

func (r *recall) add(msg string) {
	if msg == "" || (len(r.sent) > 0 && r.sent[len(r.sent)-1] == msg) {
		return
	}
	r.sent = append(r.sent, msg)
	if over := len(r.sent) - constants.MaxInputHistory; over > 0 {
		r.sent = r.sent[over:]
	}
}

// step moves back (delta > 0) or forward (delta < 0) and returns the text
// to show. ok is false when there is nothing to recall.
func (r *recall) step(delta int, current string) (string, bool) {
	if len(r.sent) == 0 {
		return "", false
	}
	if r.depth == 0 && delta > 0 {
		r.draft = current
	}
	r.depth = min(max(r.depth+delta, 0), len(r.sent))
	if r.depth == 0 {
		return r.draft, true
	}
	return r.sent[len(r.sent)-r.depth], true
}

func (r *recall) reset() {
	r.depth = 0
	r.draft = ""
}

// InputModel is the single-line message editor.
type InputModel struct {
	field  textinput.Model
	recall recall
}

// NewInputModel creates a focused input.
func NewInputModel() InputModel {
	field := textinput.New()
	field.Placeholder = "Ask something..."
	field.Prompt = promptStyle.Render("› ")
	field.CharLimit = constants.MaxMessageLength
	field.Focus()

	return InputModel{field: field}
}

// Value returns the text being edited.
func (m InputModel) Value() string {
	return m.field.Value()
}

// SetValue replaces the text and moves the cursor to its end.
func (m *InputModel) SetValue(s string) {
	m.field.SetValue(s)
	m.field.CursorEnd()
}

// Update handles recall keys and forwards everything else to the text field.
func (m InputModel) Update(msg tea.Msg) (InputModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		delta := 0
		switch {
		case key.Matches(k, historyKeys.Up):
			delta = 1
		case key.Matches(k, historyKeys.Down):
			delta = -1
		}
		if delta != 0 {
			if text, ok := m.recall.step(delta, m.field.Value()); ok {
				m.SetValue(text)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.field, cmd = m.field.Update(msg)
	return m, cmd
}

// Reset clears the text and leaves recall.
func (m *InputModel) Reset() {
	m.field.Reset()
	m.recall.reset()
}

// AddToHistory remembers a sent message. Blank and repeated messages are skipped.
func (m *InputModel) AddToHistory(message string) {
	m.recall.add(message)
}

// SetWidth fits the field inside a box of the given outer width.
func (m *InputModel) SetWidth(width int) {
	m.field.Width = max(1, width-7) // border, padding, prompt and cursor
}

// View renders the input box; the border dims while busy.
func (m InputModel) View(width int, busy bool) string {
	style := inputStyle
	if busy {
		style = inputBusyStyle
	}
	return style.Width(max(1, width-2)).Render(m.field.View())
}
