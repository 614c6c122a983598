// Package tui is the terminal front-end: a transcript, an avatar with a
// subtitle line, a status line and the message input.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-chat/core/presenter"
	"github.com/koscakluka/ema-chat/core/session"
	"github.com/muesli/reflow/wordwrap"
)

// Session is the part of the session controller the UI drives.
type Session interface {
	Submit(ctx context.Context, message string) error
	EnsureUnlocked(ctx context.Context) error
}

type role int

const (
	roleUser role = iota
	roleAssistant
)

type message struct {
	role   role
	turnID string
	text   string
}

type (
	submitDoneMsg struct{ err error }
	unlockDoneMsg struct{ err error }
)

// chrome is the number of lines used by everything but the transcript.
const chrome = 7

type Model struct {
	ctx     context.Context
	session Session

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model

	messages     []message
	talking      bool
	caption      string
	status       string
	ready        bool
	inputEnabled bool
	unlocked     bool
	lastError    error

	width, height int
}

func NewModel(ctx context.Context, s Session) Model {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = busyStyle

	return Model{
		ctx:          ctx,
		session:      s,
		input:        input,
		transcript:   viewport.New(80, 10),
		spinner:      spin,
		status:       presenter.StatusReady,
		ready:        true,
		inputEnabled: true,
		width:        80,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}

		if !m.unlocked {
			m.unlocked = true
			cmds = append(cmds, m.unlock())
		}

		switch msg.Type {
		case tea.KeyEnter:
			if cmd := m.submit(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			cmds = append(cmds, cmd)
		default:
			if m.inputEnabled {
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case submitDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrEmptyMessage) {
			m.lastError = msg.err
		}

	case unlockDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err
		}

	case avatarMsg:
		m.talking = msg.talking

	case captionMsg:
		m.caption = ""
		if msg.visible {
			m.caption = msg.text
		}

	case statusMsg:
		wasReady := m.ready
		m.status, m.ready = msg.text, msg.ready
		if wasReady && !m.ready {
			cmds = append(cmds, m.spinner.Tick)
		}

	case inputEnabledMsg:
		m.inputEnabled = msg.enabled
		if msg.enabled {
			cmds = append(cmds, m.input.Focus())
		} else {
			m.input.Blur()
		}

	case openMessageMsg:
		m.messages = append(m.messages, message{role: roleAssistant, turnID: msg.turnID})
		m.refreshTranscript()

	case appendTextMsg:
		if i := m.assistantMessage(msg.turnID); i >= 0 {
			m.messages[i].text += msg.text
			m.refreshTranscript()
		}

	case closeMessageMsg:
		// Text stays in the transcript, nothing else is attached to a turn.

	case spinner.TickMsg:
		if !m.ready {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	if !m.inputEnabled {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.SetValue("")
	m.lastError = nil
	// Keys may arrive before the session disables input itself.
	m.inputEnabled = false
	m.input.Blur()
	m.messages = append(m.messages, message{role: roleUser, text: text})
	m.refreshTranscript()

	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return submitDoneMsg{err: s.Submit(ctx, text)}
	}
}

func (m Model) unlock() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return unlockDoneMsg{err: s.EnsureUnlocked(ctx)}
	}
}

func (m Model) assistantMessage(turnID string) int {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == roleAssistant && m.messages[i].turnID == turnID {
			return i
		}
	}
	return -1
}

func (m *Model) refreshTranscript() {
	width := max(m.width-2, 10)

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.role {
		case roleUser:
			b.WriteString(userStyle.Render("You"))
		case roleAssistant:
			b.WriteString(assistantStyle.Render("Ema"))
		}
		b.WriteString("\n")
		b.WriteString(wordwrap.String(msg.text, width))
	}

	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m Model) View() string {
	avatar := avatarStatic
	if m.talking {
		avatar = avatarTalking
	}

	caption := dimStyle.Render(" ")
	if m.caption != "" {
		caption = captionStyle.Render(wordwrap.String(m.caption, max(m.width-14, 10)))
	}

	status := readyStyle.Render(m.status)
	if !m.ready {
		status = m.spinner.View() + " " + busyStyle.Render(m.status)
	}
	if m.lastError != nil {
		status += dimStyle.Render("  (" + m.lastError.Error() + ")")
	}

	input := m.input.View()
	if !m.inputEnabled {
		input = dimStyle.Render("> waiting for the response...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.transcript.View(),
		lipgloss.JoinHorizontal(lipgloss.Center, avatarStyle.Render(avatar), " ", caption),
		status,
		input,
	)
}
