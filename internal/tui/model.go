package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Backend is the TUI-facing subset of the chat API client.
type Backend interface {
	Chat(session, message string) (string, error)
	Upload(session, path string) (chunks, embedded int, err error)
}

// Model is the Bubble Tea model for the terminal chat client.
type Model struct {
	backend    Backend
	session    string
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	waiting    bool
	ready      bool
}

// New creates a chat TUI bound to the given backend and session id.
func New(backend Backend, session string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /upload <path>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		backend:  backend,
		session:  session,
		input:    ti,
		viewport: vp,
		status:   "Connected. Session " + session,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

type replyMsg struct {
	text string
	err  error
}

type uploadMsg struct {
	path     string
	chunks   int
	embedded int
	err      error
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - fh
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			if path, ok := strings.CutPrefix(line, "/upload "); ok {
				m.waiting = true
				m.status = "Uploading " + path + "..."
				return m, m.uploadCmd(strings.TrimSpace(path))
			}
			m.transcript = append(m.transcript, userStyle.Render("you: ")+line)
			m.viewport.SetContent(strings.Join(m.transcript, "\n"))
			m.viewport.GotoBottom()
			m.waiting = true
			m.status = "Waiting for reply..."
			return m, m.chatCmd(line)
		}
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.transcript = append(m.transcript, assistantStyle.Render("assistant: ")+msg.text)
			m.status = "Ready."
		}
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		m.viewport.GotoBottom()
		return m, nil
	case uploadMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Upload error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Uploaded %s: %d chunks, %d embedded", msg.path, msg.chunks, msg.embedded)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) chatCmd(message string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.backend.Chat(m.session, message)
		return replyMsg{text: reply, err: err}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		chunks, embedded, err := m.backend.Upload(m.session, path)
		return uploadMsg{path: path, chunks: chunks, embedded: embedded, err: err}
	}
}

// View renders the chat transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
