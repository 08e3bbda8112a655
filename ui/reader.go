// Package ui provides the terminal read-along view.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/readalong/speech"
)

const (
	eventBuffer   = 64
	statusTimeout = 3 * time.Second
	maxTitleWidth = 32
)

// Speaker is the part of a speech session the view drives.
type Speaker interface {
	Speak(text string, rate float64, onProgress func(offset int), onEnd func()) uint64
	Cancel()
	ReportsProgress() bool
	Kind() speech.Kind
}

type keyMap struct {
	Toggle key.Binding
	Loop   key.Binding
	Copy   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Loop, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "play/stop")),
	Loop:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
	Copy:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the read-along view: the text with the spoken word highlighted.
type Model struct {
	cfg     Config
	speaker Speaker
	text    string
	tracker *speech.Tracker

	// request numbers every Speak so late callbacks can be told apart
	request  uint64
	speaking bool
	loop     bool
	loops    int
	events   chan tea.Msg
	done     chan struct{}
	status   string

	active   lipgloss.Style
	spinner  spinner.Model
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// NewModel returns a read-along view of text spoken by speaker.
func NewModel(cfg Config, speaker Speaker, text string) Model {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(mintGreen)

	return Model{
		cfg:     cfg,
		speaker: speaker,
		text:    text,
		tracker: speech.NewTracker(speech.Tokenize(text)),
		loop:    cfg.Loop,
		events:  make(chan tea.Msg, eventBuffer),
		done:    make(chan struct{}),
		active:  activeStyle(cfg.Highlight),
		spinner: sp,
		help:    help.New(),
		width:   int(cfg.Width),
	}
}

// NewProgram returns a new Tea program running the read-along view.
func NewProgram(cfg Config, speaker Speaker, text string) *tea.Program {
	log.Debug("starting read-along view", "backend", speaker.Kind(), "progress", speaker.ReportsProgress())
	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(NewModel(cfg, speaker, text), opts...)
}

// Init starts speaking right away.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), func() tea.Msg { return startMsg{} })
}

type (
	startMsg       struct{}
	clearStatusMsg struct{}
)

// Update handles keys and session events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.stop()
			select {
			case <-m.done:
			default:
				close(m.done)
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if m.speaking {
				m.stop()
			} else {
				m = m.start()
				cmds = append(cmds, m.spinner.Tick)
			}
		case key.Matches(msg, keys.Loop):
			m.loop = !m.loop
		case key.Matches(msg, keys.Copy):
			// OSC 52 first, then the system clipboard
			termenv.Copy(m.text)
			_ = clipboard.WriteAll(m.text)
			m.status = "Copied text"
			cmds = append(cmds, tea.Tick(statusTimeout, func(time.Time) tea.Msg { return clearStatusMsg{} }))
		}

	case clearStatusMsg:
		m.status = ""

	case startMsg:
		if !m.speaking {
			m = m.start()
			cmds = append(cmds, m.spinner.Tick)
		}

	case progressMsg:
		cmds = append(cmds, waitForEvent(m.events))
		if msg.request != m.request || !m.speaking {
			break
		}
		m.tracker.Update(msg.offset)

	case endMsg:
		cmds = append(cmds, waitForEvent(m.events))
		if msg.request != m.request {
			break
		}
		m.speaking = false
		m.tracker.Reset()
		if m.loop && m.hasWords() {
			m.loops++
			m = m.start()
			cmds = append(cmds, m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.cfg.Width > 0 && uint(m.width) > m.cfg.Width {
			m.width = int(m.cfg.Width)
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.ready = true

	case spinner.TickMsg:
		if m.speaking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the text and a status bar.
func (m Model) View() string {
	body := m.renderText()
	if !m.ready {
		return body + "\n" + m.statusView()
	}
	m.viewport.SetContent(body)
	return m.viewport.View() + "\n" + m.statusView()
}

// start speaks the text under a fresh request number.
func (m Model) start() Model {
	m.request++
	req := m.request
	m.speaking = true
	m.tracker.Reset()

	events, done := m.events, m.done
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-done:
		}
	}
	m.speaker.Speak(m.text, m.cfg.Rate,
		func(offset int) { send(progressMsg{request: req, offset: offset}) },
		func() { send(endMsg{request: req}) },
	)
	return m
}

func (m *Model) stop() {
	m.request++
	m.speaking = false
	m.speaker.Cancel()
	m.tracker.Reset()
}

func (m Model) hasWords() bool {
	return len(speech.Words(m.tracker.Tokens())) > 0
}

func (m Model) renderText() string {
	var b strings.Builder
	for i, tok := range m.tracker.Tokens() {
		if !tok.IsWord {
			b.WriteString(tok.Text)
			continue
		}
		switch m.tracker.Phase(i) {
		case speech.PhaseActive:
			b.WriteString(m.active.Render(tok.Text))
		case speech.PhasePast:
			b.WriteString(pastStyle.Render(tok.Text))
		default:
			b.WriteString(futureStyle.Render(tok.Text))
		}
	}
	width := m.width
	if width <= 0 {
		width = int(m.cfg.Width)
	}
	if width <= 0 {
		return b.String()
	}
	return wordwrap.String(b.String(), width)
}

func (m Model) statusView() string {
	var parts []string
	if m.cfg.Title != "" {
		parts = append(parts, titleStyle(runewidth.Truncate(m.cfg.Title, maxTitleWidth, "…")))
	}

	state := "stopped"
	if m.speaking {
		state = m.spinner.View() + " speaking"
	}
	note := fmt.Sprintf(" %s · %s", state, m.speaker.Kind())
	if !m.speaker.ReportsProgress() {
		note += " · no word timing"
	}
	if m.loop {
		note += fmt.Sprintf(" · loop %d", m.loops)
	}
	if m.status != "" {
		note += " · " + m.status
	}
	parts = append(parts, statusBarStyle(note+" "), " "+m.help.View(keys))

	return truncate(strings.Join(parts, ""), m.viewport.Width)
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
