// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/app"
	chatctl "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	// Plain disables Markdown rendering of replies.
	Plain bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx   context.Context
	app   *app.App
	ctrl  *chatctl.Controller
	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	// Streaming
	buffer    *StreamingBuffer
	optimizer *ViewportOptimizer
	ticking   bool
	markdown  *markdownCache
	plain     bool

	// Mirrors of controller state, refreshed on events
	sessions []*model.Session
	activeID string
	conn     model.ConnectionState
	models   []string

	// sending holds sessions with an outstanding send command.
	sending map[string]bool

	// Attachments for the next message
	images     []string
	imageNames []string

	showSidebar bool
	showHelp    bool

	status    string
	statusErr bool
	statusAt  time.Time
}

// New creates the chat view. The bridge must be the one whose hooks were
// given to the app's controller.
func New(ctx context.Context, a *app.App, theme *styles.Theme, bridge *Bridge, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.SpinnerFrames,
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	vp := viewport.New(80, 20)

	m := Model{
		ctx:         ctx,
		app:         a,
		ctrl:        a.Chat,
		theme:       theme,
		keys:        DefaultKeyMap(),
		viewport:    vp,
		input:       ta,
		spinner:     sp,
		help:        help.New(),
		buffer:      bridge.Buffer(),
		optimizer:   NewViewportOptimizer(),
		markdown:    newMarkdownCache(theme.IsDark),
		plain:       opts.Plain,
		sending:     make(map[string]bool),
		showSidebar: true,
	}
	m.syncController()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and probes the server.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.connectCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConnectionMsg:
		m.syncController()
		return m, nil

	case StateMsg:
		return m.handleState(msg)

	case SessionsChangedMsg:
		m.syncController()
		m.refresh()
		return m, nil

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case ResetDoneMsg:
		m.syncController()
		m.optimizer.ForceUpdate()
		m.refresh()
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		return m, m.setStatus("Chat cleared")

	case ActionDoneMsg:
		m.syncController()
		m.refresh()
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		if msg.Status != "" {
			return m, m.setStatus(msg.Status)
		}
		return m, nil

	case StreamTickMsg:
		return m.handleStreamTick()

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case clearStatusMsg:
		if msg.setAt.Equal(m.statusAt) {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// syncController copies the controller's current state into the view.
func (m *Model) syncController() {
	m.sessions = m.ctrl.Sessions()
	m.activeID = m.ctrl.ActiveID()
	m.conn = m.ctrl.ConnectionState()
	m.models = m.ctrl.Models()
}

// active returns a snapshot of the active session, or nil.
func (m Model) active() *model.Session {
	if m.activeID == "" {
		return nil
	}
	s, err := m.ctrl.Session(m.activeID)
	if err != nil {
		return nil
	}
	return s
}

// busy reports whether the active session has a send in flight.
func (m Model) busy() bool {
	return m.activeID != "" && (m.sending[m.activeID] || m.ctrl.Busy(m.activeID))
}

// setStatus shows transient text in the status bar.
func (m *Model) setStatus(text string) tea.Cmd {
	m.status = text
	m.statusErr = false
	return m.scheduleStatusClear()
}

// setError shows an error in the status bar.
func (m *Model) setError(err error) tea.Cmd {
	m.status = err.Error()
	m.statusErr = true
	return m.scheduleStatusClear()
}

func (m *Model) scheduleStatusClear() tea.Cmd {
	at := time.Now()
	m.statusAt = at
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{setAt: at}
	})
}

// startTicking begins the frame tick if it is not running.
func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tea.Batch(streamTickCmd(), m.spinner.Tick)
}

// refresh re-renders the message list into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	content := m.renderMessages(m.active(), m.viewport.Width)
	if !m.optimizer.ShouldUpdate(content) {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(content)
	if atBottom || m.busy() {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.ready = true
	m.layout()
	m.optimizer.ForceUpdate()
	m.refresh()
	return m, nil
}

// layout sizes the components for the current terminal size.
func (m *Model) layout() {
	const (
		headerHeight    = 1
		inputHeight     = 4 // border + textarea
		statusBarHeight = 1
	)
	reserved := headerHeight + inputHeight + statusBarHeight
	if len(m.imageNames) > 0 {
		reserved++
	}

	bodyWidth := m.width - m.sidebarWidth()
	if bodyWidth < 10 {
		bodyWidth = 10
	}
	bodyHeight := m.height - reserved
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	m.viewport.Width = bodyWidth
	m.viewport.Height = bodyHeight
	m.input.SetWidth(max(m.width, 10))
	m.help.Width = m.width
}

// sidebarWidth is the width taken by the session list, border included.
func (m Model) sidebarWidth() int {
	if !m.showSidebar {
		return 0
	}
	w := m.theme.SidebarWidth()
	if w == 0 {
		return 0
	}
	return w + 2
}

func (m Model) handleState(msg StateMsg) (tea.Model, tea.Cmd) {
	m.syncController()
	if msg.SessionID != m.activeID {
		return m, nil
	}
	var cmd tea.Cmd
	switch msg.State {
	case chatctl.Sending, chatctl.Streaming:
		cmd = m.startTicking()
	}
	m.refresh()
	return m, cmd
}

func (m Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	delete(m.sending, msg.SessionID)
	m.buffer.ForceFlush()
	m.syncController()
	m.refresh()

	if msg.Err != nil {
		return m, m.setError(msg.Err)
	}
	switch msg.Outcome.Status {
	case chatctl.Errored:
		return m, m.setError(msg.Outcome.Err)
	case chatctl.Cancelled:
		return m, m.setStatus("Reply stopped")
	}
	if st := msg.Outcome.Stats; st != nil && st.Complete() {
		return m, m.setStatus(st.Format())
	}
	return m, nil
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if _, ok := m.buffer.Flush(); ok {
		m.refresh()
	}
	if len(m.sending) > 0 {
		return m, streamTickCmd()
	}
	m.ticking = false
	m.buffer.ForceFlush()
	m.refresh()
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// connectCmd probes the server off the update loop.
func (m Model) connectCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		state := ctrl.Connect(ctx)
		return ConnectionMsg{State: state, Models: ctrl.Models()}
	}
}

// sendCmd runs a send and reports its outcome.
func (m Model) sendCmd(id, text string, images []string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		out, err := ctrl.Send(ctx, id, text, images...)
		return SendDoneMsg{SessionID: id, Outcome: out, Err: err}
	}
}

// resetCmd clears the session and the server's context for its model.
func (m Model) resetCmd(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return ResetDoneMsg{SessionID: id, Err: ctrl.Reset(ctx, id)}
	}
}

// actionCmd runs fn off the update loop and reports its status text.
func (m Model) actionCmd(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return ActionDoneMsg{Status: status, Err: err}
	}
}
