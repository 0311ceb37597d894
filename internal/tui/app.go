// Package tui provides the terminal chat interface for typecast.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/chat"
	"github.com/xonecas/typecast/internal/constants"
	"github.com/xonecas/typecast/internal/render"
	"github.com/xonecas/typecast/internal/scroll"
	"github.com/xonecas/typecast/internal/selection"
)

// Rows taken by everything except the conversation viewport.
const (
	headerHeight = 1
	inputHeight  = 3
	statusHeight = 1
)

// Model is the main TUI model.
type Model struct {
	ctx      context.Context
	session  *chat.Session
	scroll   *scroll.Policy
	selector *selection.Selector
	renderer *render.Renderer

	width    int
	height   int
	showHelp bool

	input     InputModel
	indicator indicator
	notice    string
}

// New creates a new TUI model. selector may be nil, in which case the server
// default model is used and model cycling is disabled.
func New(ctx context.Context, session *chat.Session, policy *scroll.Policy, selector *selection.Selector, renderer *render.Renderer) Model {
	if renderer == nil {
		renderer = render.New(render.DefaultStyle)
	}
	m := Model{
		ctx:       ctx,
		session:   session,
		scroll:    policy,
		selector:  selector,
		renderer:  renderer,
		input:     NewInputModel(),
	}
	if selector != nil && selector.Err() != nil {
		m.notice = fmt.Sprintf("model list unavailable, using %s", selector.CurrentID())
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width)
		m.scroll.SetSize(m.viewportWidth(), m.viewportHeight())

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.session.Close()
			m.scroll.Close()
			return m, tea.Quit
		}

		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		if key.Matches(msg, keys.Help) {
			m.showHelp = true
			return m, nil
		}

		if handled, cmd := m.scroll.HandleInput(msg); handled {
			refreshCmd := m.refresh()
			return m, tea.Batch(cmd, refreshCmd)
		}

		switch {
		case key.Matches(msg, keys.Enter):
			cmds = append(cmds, m.send())
		case key.Matches(msg, keys.Clear):
			cmds = append(cmds, m.clear())
		case key.Matches(msg, keys.CycleModel):
			m.cycleModel()
		case key.Matches(msg, keys.Escape):
			m.notice = ""
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if _, cmd := m.scroll.HandleInput(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case activityTickMsg:
		var cmd tea.Cmd
		m.indicator, cmd = m.indicator.update(msg)
		return m, cmd

	default:
		cmds = append(cmds, m.session.Update(msg), m.scroll.Update(msg))
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.refresh())
	return m, tea.Batch(cmds...)
}

// refresh syncs the viewport content and the activity indicator with the
// session. It returns the command that starts the indicator when needed.
func (m *Model) refresh() tea.Cmd {
	cmd := m.indicator.set(activityFor(m.session.State()))
	if m.width > 0 {
		m.scroll.SetContent(m.renderConversation(m.contentWidth()))
	}
	return cmd
}

func (m *Model) send() tea.Cmd {
	value := m.input.Value()
	cmd, err := m.session.Send(value)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		m.input.Reset()
		return nil
	case errors.Is(err, chat.ErrExchangeInFlight):
		m.notice = "wait for the reply to finish"
		return nil
	case errors.Is(err, chat.ErrMessageTooLong):
		m.notice = fmt.Sprintf("message exceeds %d characters", constants.MaxMessageLength)
		return nil
	case err != nil:
		m.notice = err.Error()
		return nil
	}

	m.input.AddToHistory(strings.TrimSpace(value))
	m.input.Reset()
	m.notice = ""
	return cmd
}

func (m *Model) clear() tea.Cmd {
	cmd, err := m.session.Clear(m.ctx)
	if err != nil {
		m.notice = "cannot clear while a reply is streaming"
		return nil
	}
	m.notice = ""
	return cmd
}

func (m *Model) cycleModel() {
	if m.selector == nil {
		return
	}
	if m.session.Busy() {
		m.notice = "cannot switch models while a reply is streaming"
		return
	}
	model, err := m.selector.Cycle()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to save model selection")
		m.notice = fmt.Sprintf("model %s selected but not saved", model.ID)
		return
	}
	m.notice = fmt.Sprintf("model: %s", model.Name)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return RenderHelp(m.width, m.height, m.scroll.Keys())
	}

	suffix := ""
	if !m.scroll.IsAtBottom() {
		suffix = dimmedStyle.Render(" ↓")
	}
	header := renderHeader("TYPECAST", suffix, m.width)

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.scroll.View(),
		renderScrollbar(scrollbarState{
			height:   m.scroll.Height(),
			total:    m.scroll.TotalLines(),
			offset:   m.scroll.YOffset(),
			detached: !m.scroll.IsAtBottom(),
		}),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.input.View(m.width, m.session.Busy()),
		m.statusLine(),
	)
}

func (m Model) statusLine() string {
	left := m.indicator.view()
	if m.width < 60 {
		left = m.indicator.compactView()
	}
	if m.selector != nil {
		left += "  " + dimmedStyle.Render(truncate(m.selector.Current().Name, 24))
	}

	avail := m.width - lipgloss.Width(left) - 2
	switch {
	case m.session.LastError() != "":
		return left + "  " + errorStyle.Render(truncate("Error: "+m.session.LastError(), avail))
	case m.notice != "":
		return left + "  " + noticeStyle.Render(truncate(m.notice, avail))
	}
	return left
}

// renderConversation renders every message for the viewport. Settled assistant
// messages are rendered as Markdown; the message still being typed is wrapped
// plain text, since its Markdown may be incomplete.
func (m Model) renderConversation(width int) string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return dimmedStyle.Render("Start a conversation. Press F1 for help.")
	}

	busy := m.session.Busy()
	parts := make([]string, 0, len(msgs))
	for i, msg := range msgs {
		label := roleStyle(msg.Role).Render(roleLabel(msg.Role))

		var body string
		pending := busy && i == len(msgs)-1 && msg.Role == api.RoleAssistant
		switch {
		case msg.Role == api.RoleUser:
			body = render.Plain(msg.Content, width)
		case pending && msg.Content == "":
			body = dimmedStyle.Render("…")
		case pending:
			body = render.Plain(msg.Content, width) + cursorStyle.Render("▌")
		default:
			body = m.renderer.Markdown(msg.Content, width)
		}
		parts = append(parts, label+"\n"+body)
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) viewportWidth() int {
	return max(1, m.width-1) // scrollbar column
}

func (m Model) viewportHeight() int {
	return max(1, m.height-headerHeight-inputHeight-statusHeight)
}

func (m Model) contentWidth() int {
	return max(1, m.viewportWidth()-1)
}

// Key bindings
var keys = struct {
	Quit       key.Binding
	Help       key.Binding
	Escape     key.Binding
	Enter      key.Binding
	Clear      key.Binding
	CycleModel key.Binding
}{
	Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("Ctrl+C", "quit")),
	Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "toggle help")),
	Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "dismiss notice")),
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "send message")),
	Clear:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("Ctrl+L", "clear conversation")),
	CycleModel: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("Ctrl+T", "next model")),
}
