package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/constants"
	"github.com/xonecas/typecast/internal/sse"
	"github.com/xonecas/typecast/internal/typing"
)

// Sender opens a response stream and clears server history.
type Sender interface {
	Send(ctx context.Context, req api.SendRequest) (io.ReadCloser, error)
	Clear(ctx context.Context) error
}

// Scroller keeps the viewport following new content.
type Scroller interface {
	ScrollToBottom(smooth bool) tea.Cmd
	DebouncedAutoScroll() tea.Cmd
}

// ModelSource supplies the model id sent with each message.
type ModelSource interface {
	CurrentID() string
}

type (
	openedMsg struct {
		id   string
		body io.ReadCloser
		err  error
	}
	readMsg struct {
		id   string
		data []byte
		err  error
	}
	clearedMsg struct {
		err error
	}
)

// exchange is the state scoped to one send.
type exchange struct {
	id     string
	target int
	model  string
	body   io.ReadCloser
	cancel context.CancelFunc
	logger zerolog.Logger
}

// Session owns the message list and runs at most one exchange at a time.
//
// All methods must be called from the bubbletea event loop; the commands it
// returns do the blocking I/O and report back through Update.
type Session struct {
	ctx      context.Context
	sender   Sender
	scroller Scroller
	models   ModelSource
	pacer    *typing.Pacer
	decoder  *sse.Decoder

	messages  []Message
	state     State
	lastError string
	pending   *exchange
	clearing  bool
	closed    bool

	now func() time.Time
}

// NewSession creates an idle session. ctx bounds every request it issues.
func NewSession(ctx context.Context, sender Sender, scroller Scroller, interval time.Duration) *Session {
	return &Session{
		ctx:      ctx,
		sender:   sender,
		scroller: scroller,
		pacer:    typing.New(interval),
		decoder:  sse.NewDecoder(),
		now:      time.Now,
	}
}

// WithModels attaches the source of the model sent with each message.
func (s *Session) WithModels(models ModelSource) *Session {
	s.models = models
	return s
}

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Busy reports whether an exchange or a clear is in flight.
func (s *Session) Busy() bool {
	return s.state != StateIdle || s.clearing
}

// LastError returns the user-visible error of the last failed operation.
func (s *Session) LastError() string {
	return s.lastError
}

// Typing reports whether the pacer is revealing text.
func (s *Session) Typing() bool {
	return s.pacer.Typing()
}

// QueueLen returns how many characters wait to be revealed.
func (s *Session) QueueLen() int {
	return s.pacer.QueueLen()
}

// Send starts an exchange for text. It fails without side effects for blank
// input or while another exchange is in flight.
func (s *Session) Send(text string) (tea.Cmd, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > constants.MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if s.closed || s.Busy() {
		return nil, ErrExchangeInFlight
	}

	now := s.now()
	s.lastError = ""
	s.messages = append(s.messages,
		Message{Role: api.RoleUser, Content: text, CreatedAt: now},
		Message{Role: api.RoleAssistant, CreatedAt: now},
	)

	ctx, cancel := context.WithCancel(s.ctx)
	ex := &exchange{
		id:     uuid.NewString(),
		target: len(s.messages) - 1,
		cancel: cancel,
	}
	if s.models != nil {
		ex.model = s.models.CurrentID()
	}
	ex.logger = log.With().Str("exchange", ex.id).Logger()
	s.pending = ex

	s.pacer.Reset()
	s.decoder = sse.NewDecoder().WithLogger(ex.logger)
	s.setState(StateSending)

	req := api.SendRequest{Message: text, Model: ex.model}
	sender, id := s.sender, ex.id
	open := func() tea.Msg {
		body, err := sender.Send(ctx, req)
		return openedMsg{id: id, body: body, err: err}
	}
	return tea.Batch(s.scroller.ScrollToBottom(true), open), nil
}

// Clear deletes the server history and, once that succeeds, the local
// conversation. It is rejected while an exchange or another clear is in
// flight, and Send is rejected until the clear answers.
func (s *Session) Clear(ctx context.Context) (tea.Cmd, error) {
	if s.closed || s.Busy() {
		return nil, ErrExchangeInFlight
	}
	s.clearing = true
	sender := s.sender
	return func() tea.Msg {
		return clearedMsg{err: sender.Clear(ctx)}
	}, nil
}

// Update handles pacer ticks and the results of the session's commands.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	if s.closed {
		if m, ok := msg.(openedMsg); ok && m.body != nil {
			m.body.Close()
		}
		return nil
	}

	switch msg := msg.(type) {
	case typing.TickMsg:
		changed, next := s.pacer.Update(msg)
		if !changed {
			return next
		}
		if s.pending != nil {
			s.messages[s.pending.target].Content = s.pacer.Text()
		}
		return tea.Batch(next, s.scroller.DebouncedAutoScroll())

	case openedMsg:
		if !s.current(msg.id) {
			if msg.body != nil {
				msg.body.Close()
			}
			return nil
		}
		if msg.err != nil {
			return s.fail(msg.err)
		}
		s.pending.body = msg.body
		s.setState(StateStreaming)
		return s.read()

	case readMsg:
		if !s.current(msg.id) {
			return nil
		}
		return s.handleRead(msg)

	case clearedMsg:
		s.clearing = false
		if msg.err != nil {
			log.Warn().Err(msg.err).Msg("Clear history failed")
			s.lastError = userError(msg.err)
			return nil
		}
		s.messages = nil
		s.pacer.Reset()
		s.lastError = ""
		log.Info().Msg("Conversation cleared")
		return nil
	}
	return nil
}

// Close abandons any exchange in flight. Later messages are ignored.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pacer.Stop()
	if s.pending != nil {
		s.release()
	}
}

func (s *Session) current(id string) bool {
	return s.pending != nil && s.pending.id == id
}

func (s *Session) handleRead(msg readMsg) tea.Cmd {
	var cmds []tea.Cmd
	if len(msg.data) > 0 {
		cmd, done := s.apply(s.decoder.Feed(msg.data))
		if done {
			return cmd
		}
		cmds = append(cmds, cmd)
	}

	switch {
	case errors.Is(msg.err, io.EOF):
		cmd, done := s.apply(s.decoder.Flush())
		if done {
			return cmd
		}
		s.pending.logger.Debug().Msg("Stream ended without done event")
		return tea.Batch(append(cmds, cmd, s.settle())...)

	case msg.err != nil:
		return s.fail(fmt.Errorf("read stream: %w", msg.err))
	}

	return tea.Batch(append(cmds, s.read())...)
}

// apply processes decoded events in order. It reports true once a terminal
// event has settled or failed the exchange.
func (s *Session) apply(events []sse.Event) (tea.Cmd, bool) {
	var cmds []tea.Cmd
	for _, ev := range events {
		switch ev.Kind {
		case sse.KindChunk:
			s.pacer.Enqueue(ev.Content)
			if !s.pacer.Typing() {
				cmds = append(cmds, s.pacer.Start())
			}
		case sse.KindDone:
			return s.settle(), true
		case sse.KindError:
			return s.fail(ev.Err()), true
		case sse.KindStart:
			s.pending.logger.Debug().Str("model", ev.Model).Msg("Stream started")
		default:
			s.pending.logger.Debug().Str("event", ev.Type).Msg("Ignoring event")
		}
	}
	return tea.Batch(cmds...), false
}

// settle flushes the pacer into the placeholder before the final scroll, so the
// scroll sees the final content height.
func (s *Session) settle() tea.Cmd {
	s.setState(StateSettling)
	s.pacer.Stop()
	s.messages[s.pending.target].Content = s.pacer.Text()

	s.pending.logger.Info().Int("chars", utf8.RuneCountInString(s.pacer.Text())).Msg("Exchange settled")
	s.release()
	s.setState(StateIdle)
	return s.scroller.ScrollToBottom(true)
}

// fail removes the placeholder and records err for the user.
func (s *Session) fail(err error) tea.Cmd {
	s.setState(StateErrored)
	s.pacer.Stop()

	target := s.pending.target
	if target >= 0 && target < len(s.messages) {
		s.messages = append(s.messages[:target], s.messages[target+1:]...)
	}
	s.lastError = userError(err)

	s.pending.logger.Error().Err(err).Msg("Exchange failed")
	s.release()
	s.setState(StateIdle)
	return nil
}

func (s *Session) release() {
	ex := s.pending
	s.pending = nil
	ex.cancel()
	if ex.body != nil {
		if err := ex.body.Close(); err != nil {
			ex.logger.Debug().Err(err).Msg("Close stream")
		}
	}
}

func (s *Session) read() tea.Cmd {
	body, id := s.pending.body, s.pending.id
	return func() tea.Msg {
		buf := make([]byte, constants.StreamReadSize)
		n, err := body.Read(buf)
		return readMsg{id: id, data: buf[:n], err: err}
	}
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	l := log.Debug()
	if s.pending != nil {
		l = s.pending.logger.Debug()
	}
	l.Str("old_state", s.state.String()).Str("state", state.String()).Msg("Session state changed")
	s.state = state
}

// userError turns err into the single line shown to the user.
func userError(err error) string {
	var se *sse.StreamError
	if errors.As(err, &se) {
		return se.Message
	}
	var status *api.StatusError
	if errors.As(err, &status) {
		if status.Message != "" {
			return status.Message
		}
		return fmt.Sprintf("HTTP error! status: %d", status.StatusCode)
	}
	return err.Error()
}
