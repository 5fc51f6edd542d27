// Package tui provides the terminal user interface for gantry: a live
// monitor over the task facade and its event bus.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/manager"
)

// refreshInterval is how often the monitor re-reads facade state.
const refreshInterval = time.Second

// feedCapacity bounds the retained event feed.
const feedCapacity = 200

// EventMsg carries one bus event into the UI.
type EventMsg struct {
	Event events.Event
}

// tickMsg drives the periodic state refresh.
type tickMsg time.Time

// feedEntry is one rendered line of the event feed.
type feedEntry struct {
	at     time.Time
	kind   string
	taskID string
	detail string
}

// Monitor is the bubbletea model for the live monitor.
type Monitor struct {
	manager *manager.Manager

	stats    manager.Stats
	timeline []manager.TimelineEntry
	feed     []feedEntry

	spin   spinner.Model
	events viewport.Model
	follow bool

	width    int
	height   int
	quitting bool

	titleStyle  lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	headerStyle lipgloss.Style
	barStyle    lipgloss.Style
	feedStyle   lipgloss.Style
}

// New creates a monitor over the given facade.
func New(mgr *manager.Manager) *Monitor {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &Monitor{
		manager: mgr,
		spin:    spin,
		events:  viewport.New(80, 10),
		follow:  true,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		mutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),

		barStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		feedStyle: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, scheduleRefresh())
}

// Update implements tea.Model.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "end", "G", "f":
			m.follow = true
			m.events.GotoBottom()
			return m, nil
		case "up", "k", "pgup", "b", "home", "g":
			// Scrolling back suspends follow mode until the user
			// returns to the bottom.
			m.follow = false
		}
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		if m.events.AtBottom() {
			m.follow = true
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeFeed()
		m.renderFeed()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		m.refresh()
		return m, scheduleRefresh()

	case EventMsg:
		m.appendEvent(msg.Event)
		m.refresh()
	}

	return m, nil
}

// View implements tea.Model.
func (m *Monitor) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	sections := []string{
		m.viewTitle(),
		m.viewStats(),
		m.viewDistribution(),
		m.viewTimeline(),
		m.viewFeed(),
		m.viewFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// refresh re-reads stats and timeline from the facade.
func (m *Monitor) refresh() {
	m.stats = m.manager.Stats()
	m.timeline = m.manager.Timeline(timelineRows)
}

// appendEvent adds a bus event to the feed, trimming to capacity.
func (m *Monitor) appendEvent(e events.Event) {
	m.feed = append(m.feed, feedEntry{
		at:     e.Timestamp,
		kind:   string(e.Type),
		taskID: e.TaskID,
		detail: describeEvent(e),
	})
	if len(m.feed) > feedCapacity {
		m.feed = m.feed[len(m.feed)-feedCapacity:]
	}
	m.renderFeed()
}

// renderFeed rebuilds the viewport content from the feed.
func (m *Monitor) renderFeed() {
	m.events.SetContent(m.feedContent())
	if m.follow {
		m.events.GotoBottom()
	}
}

// resizeFeed fits the viewport into the current window.
func (m *Monitor) resizeFeed() {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	height := m.height - fixedRows
	if height < 4 {
		height = 4
	}
	if height > 16 {
		height = 16
	}
	m.events.Width = width
	m.events.Height = height
}

// scheduleRefresh emits a tickMsg after the refresh interval.
func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Attach subscribes the program to the bus, forwarding every event
// into the running UI. The caller owns the returned subscription.
func Attach(bus *events.Bus, p *tea.Program) int {
	return bus.Subscribe(func(e events.Event) error {
		p.Send(EventMsg{Event: e})
		return nil
	})
}

// NewProgram creates a monitor program over the facade. The returned
// program accepts messages via Send.
func NewProgram(mgr *manager.Manager) (*tea.Program, *Monitor) {
	monitor := New(mgr)
	p := tea.NewProgram(monitor, tea.WithAltScreen())
	return p, monitor
}
