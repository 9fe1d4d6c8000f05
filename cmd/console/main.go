// Arkadia console: a terminal chat client for the Arkadia oracle backend.
//
// Usage:
//
//	go run cmd/console/main.go
//
// Keys:
//
//	enter   - send the composed message
//	ctrl+t  - open the thread directory
//	ctrl+n  - start a new thread
//	ctrl+e  - edit the identity token
//	ctrl+c  - quit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/arkadia/console/pkg/api"
	"github.com/arkadia/console/pkg/chat"
	"github.com/arkadia/console/pkg/config"
	"github.com/arkadia/console/pkg/health"
	"github.com/arkadia/console/pkg/identity"
	"github.com/arkadia/console/pkg/prefs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5F5FAF")).
			Padding(0, 1)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	statusBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#AF5F5F")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	arkanaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	selectedItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1)
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type state int

const (
	stateChatting state = iota
	stateSelectingThread
	stateEditingIdentity
)

// Events from the controller, bridged into the update loop.
type threadsMsg struct {
	threads []api.Thread
	active  *api.ThreadID
}
type historyMsg struct{ msgs []api.Message }
type appendMsg struct{ msg api.Message }
type clearInputMsg struct{}
type noticeMsg struct{ text string }
type statusMsg health.Update

// uiView implements chat.View by forwarding controller events into the
// bubbletea update loop, keeping all model mutation on one goroutine.
type uiView struct {
	events chan tea.Msg
}

func newUIView() *uiView { return &uiView{events: make(chan tea.Msg, 64)} }

func (v *uiView) RenderThreads(threads []api.Thread, active *api.ThreadID) {
	v.events <- threadsMsg{threads: threads, active: active}
}
func (v *uiView) RenderMessages(msgs []api.Message) { v.events <- historyMsg{msgs: msgs} }
func (v *uiView) AppendMessage(msg api.Message)     { v.events <- appendMsg{msg: msg} }
func (v *uiView) ClearInput()                       { v.events <- clearInputMsg{} }
func (v *uiView) Notify(text string)                { v.events <- noticeMsg{text: text} }

type model struct {
	ctx     context.Context
	ctrl    *chat.Controller
	events  <-chan tea.Msg
	updates <-chan health.Update

	state      state
	cursor     int
	listOffset int
	width      int
	height     int

	threads    []api.Thread
	active     *api.ThreadID
	transcript []api.Message
	status     health.Update
	notice     string

	viewport viewport.Model
	textarea textarea.Model
	identity textinput.Model
	renderer *glamour.TermRenderer
}

func initialModel(ctx context.Context, ctrl *chat.Controller, view *uiView, updates <-chan health.Update) model {
	ta := textarea.New()
	ta.Placeholder = "Speak to Arkana..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "identity token"
	ti.CharLimit = 120

	// Standard style avoids terminal queries that leak into input.
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(80),
	)

	return model{
		ctx:      ctx,
		ctrl:     ctrl,
		events:   view.events,
		updates:  updates,
		status:   health.Update{State: health.StateUnavailable, Label: "Checking status..."},
		viewport: vp,
		textarea: ta,
		identity: ti,
		renderer: r,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForEvent(m.events),
		waitForStatus(m.updates),
		m.loadThreadsCmd(),
		m.loadMessagesCmd(),
	)
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func waitForStatus(ch <-chan health.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(u)
	}
}

// Controller calls run off the update loop; results come back through the
// event channel.

func (m model) loadThreadsCmd() tea.Cmd {
	return func() tea.Msg { m.ctrl.LoadThreads(m.ctx); return nil }
}

func (m model) loadMessagesCmd() tea.Cmd {
	return func() tea.Msg { m.ctrl.LoadMessages(m.ctx); return nil }
}

func (m model) createThreadCmd() tea.Cmd {
	return func() tea.Msg { m.ctrl.CreateThread(m.ctx); return nil }
}

func (m model) selectThreadCmd(id api.ThreadID) tea.Cmd {
	return func() tea.Msg { m.ctrl.SelectThread(m.ctx, id); return nil }
}

func (m model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg { m.ctrl.Send(m.ctx, text); return nil }
}

func (m model) setIdentityCmd(raw string) tea.Cmd {
	return func() tea.Msg { m.ctrl.SetIdentity(m.ctx, raw); return nil }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.state {
		case stateChatting:
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		case stateEditingIdentity:
			m.identity, cmd = m.identity.Update(msg)
			cmds = append(cmds, cmd)
		}
	default:
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		if m.viewport.Height < 0 {
			m.viewport.Height = 0
		}
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(m.width-4),
		)
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if m.state != stateChatting {
				m.state = stateChatting
				m.textarea.Focus()
				return m, nil
			}
		case tea.KeyCtrlT:
			if m.state == stateChatting {
				m.state = stateSelectingThread
				m.cursor = m.activeIndex()
				m.listOffset = 0
				return m, nil
			}
		case tea.KeyCtrlN:
			if m.state == stateChatting {
				cmds = append(cmds, m.createThreadCmd())
				return m, tea.Batch(cmds...)
			}
		case tea.KeyCtrlE:
			if m.state == stateChatting {
				m.state = stateEditingIdentity
				m.identity.SetValue(m.ctrl.State().UserID())
				m.identity.Focus()
				m.textarea.Blur()
				return m, textinput.Blink
			}
		case tea.KeyEnter:
			switch m.state {
			case stateChatting:
				m.notice = ""
				text := m.textarea.Value()
				if strings.TrimSpace(text) == "" {
					return m, tea.Batch(cmds...)
				}
				cmds = append(cmds, m.sendCmd(text))
			case stateSelectingThread:
				if m.cursor >= 0 && m.cursor < len(m.threads) {
					id := m.threads[m.cursor].ID
					m.state = stateChatting
					m.textarea.Focus()
					cmds = append(cmds, m.selectThreadCmd(id))
				}
			case stateEditingIdentity:
				raw := m.identity.Value()
				m.state = stateChatting
				m.identity.Blur()
				m.textarea.Focus()
				cmds = append(cmds, m.setIdentityCmd(raw))
			}
		case tea.KeyUp:
			if m.state == stateSelectingThread && m.cursor > 0 {
				m.cursor--
				if m.cursor < m.listOffset {
					m.listOffset = m.cursor
				}
			}
		case tea.KeyDown:
			if m.state == stateSelectingThread && m.cursor < len(m.threads)-1 {
				m.cursor++
				maxViewable := m.maxViewable()
				if m.cursor >= m.listOffset+maxViewable {
					m.listOffset = m.cursor - maxViewable + 1
				}
			}
		}

	case threadsMsg:
		m.threads = msg.threads
		m.active = msg.active
		cmds = append(cmds, waitForEvent(m.events))

	case historyMsg:
		m.transcript = msg.msgs
		m.refreshTranscript()
		cmds = append(cmds, waitForEvent(m.events))

	case appendMsg:
		m.transcript = append(m.transcript, msg.msg)
		m.refreshTranscript()
		cmds = append(cmds, waitForEvent(m.events))

	case clearInputMsg:
		m.textarea.Reset()
		cmds = append(cmds, waitForEvent(m.events))

	case noticeMsg:
		m.notice = msg.text
		cmds = append(cmds, waitForEvent(m.events))

	case statusMsg:
		m.status = health.Update(msg)
		cmds = append(cmds, waitForStatus(m.updates))
	}

	return m, tea.Batch(cmds...)
}

func (m *model) refreshTranscript() {
	var sb strings.Builder
	for _, msg := range m.transcript {
		if msg.Role.IsUser() {
			sb.WriteString(userStyle.Render("You: "))
			sb.WriteString("\n")
			sb.WriteString(msg.Content)
		} else {
			sb.WriteString(arkanaStyle.Render("Arkana: "))
			sb.WriteString("\n")
			content := msg.Content
			if m.renderer != nil {
				if rendered, err := m.renderer.Render(msg.Content); err == nil {
					content = rendered
				}
			}
			sb.WriteString(content)
		}
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m model) activeIndex() int {
	if m.active == nil {
		return 0
	}
	for i, t := range m.threads {
		if t.ID == *m.active {
			return i
		}
	}
	return 0
}

func (m model) maxViewable() int {
	maxViewable := m.height - 7
	if maxViewable < 1 {
		maxViewable = 1
	}
	return maxViewable
}

func (m model) statusPill() string {
	if m.status.State.OK() {
		return statusOKStyle.Render(m.status.Label)
	}
	return statusBadStyle.Render(m.status.Label)
}

func (m model) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Arkadia Console"),
		" ",
		m.statusPill(),
	)

	var errorView string
	if m.notice != "" {
		errorView = errorStyle.Width(m.width).Render(m.notice)
	}

	if m.state == stateSelectingThread {
		listHeader := titleStyle.Render("Threads")

		start := m.listOffset
		end := start + m.maxViewable()
		if end > len(m.threads) {
			end = len(m.threads)
		}

		var rows []string
		for i := start; i < end; i++ {
			t := m.threads[i]
			line := t.DisplayTitle()
			if m.active != nil && t.ID == *m.active {
				line += " (current)"
			}
			cursor := " "
			if m.cursor == i {
				cursor = ">"
				line = selectedItemStyle.Render(line)
			}
			rows = append(rows, fmt.Sprintf("%s %s", cursorStyle.Render(cursor), line))
		}
		if len(rows) == 0 {
			rows = append(rows, footerStyle.Render("No threads yet. Ctrl+N starts one."))
		}

		list := lipgloss.JoinVertical(lipgloss.Left, rows...)
		footer := footerStyle.Render("Enter to open, Esc to go back.")
		return lipgloss.JoinVertical(lipgloss.Left, listHeader, "", list, "", footer, errorView)
	}

	if m.state == stateEditingIdentity {
		listHeader := titleStyle.Render("Identity")
		prompt := "Who speaks? Empty falls back to \"anonymous\"."
		note := footerStyle.Render("Changing identity clears the current thread selection.")
		return lipgloss.JoinVertical(lipgloss.Left, listHeader, "", prompt, m.identity.View(), "", note, errorView)
	}

	footer := footerStyle.Render("enter send · ctrl+t threads · ctrl+n new thread · ctrl+e identity · ctrl+c quit")
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.viewport.View(),
		errorView,
		m.textarea.View(),
		footer,
	)
}

// --- Main ---

func main() {
	cfg, err := config.Load(os.Getenv("ARKADIA_CONFIG"))
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := prefs.Open(cfg.StateDir)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	defer f.Close()

	logLevel := slog.LevelInfo
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
	slog.Info("Console starting", "base_url", cfg.BaseURL, "level", logLevel)

	ids := identity.NewManager(store, slog.Default())
	who := ids.Resolve()

	var threadID *api.ThreadID
	if stored, ok := store.Get(prefs.KeyThreadID); ok && stored != "" {
		id := api.ThreadID(stored)
		threadID = &id
	}

	client := api.New(cfg.BaseURL)
	view := newUIView()
	sessionState := chat.NewState(who.ID, threadID)
	ctrl := chat.NewController(sessionState, client, view, store, ids, slog.Default())

	monitor := health.New(client, cfg.PollInterval(), slog.Default())
	go monitor.Run(ctx)

	p := tea.NewProgram(initialModel(ctx, ctrl, view, monitor.Updates()))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
