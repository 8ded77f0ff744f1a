// Package tui renders download progress, either as plain console lines or
// as an interactive bubbletea view.
package tui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bassamadnan/contractnotes/download"
)

type rowState int

const (
	rowRunning rowState = iota
	rowDone
	rowFailed
)

type brokerRow struct {
	name  string
	state rowState
	found int
	files []string
	errs  []string
}

// Model is the bubbletea model for the --tui progress view.
type Model struct {
	events <-chan download.Event
	cancel context.CancelFunc
	dir    string

	rows    []brokerRow
	spinner spinner.Model
	report  *download.Report
	done    bool
	started time.Time

	scrollTop     int
	width, height int
	statusBarText string
	statusIsError bool
	statusIsTemp  bool
}

// NewModel returns a model reading events until the channel is closed.
// cancel, if set, is called when the user quits before the run ends.
func NewModel(events <-chan download.Event, cancel context.CancelFunc, dir string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		events:        events,
		cancel:        cancel,
		dir:           dir,
		spinner:       sp,
		started:       time.Now(),
		statusBarText: "Connecting...",
	}
}

func (m Model) Init() tea.Cmd {
	log.Println("TUI: model init")
	return tea.Batch(
		waitForEventCmd(m.events),
		statusTickCmd(1*time.Second),
		m.spinner.Tick,
	)
}

// Report returns the final report once the run has finished.
func (m Model) Report() *download.Report { return m.report }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done && m.cancel != nil {
				log.Println("TUI: quit before run finished, cancelling")
				m.cancel()
			}
			m.updateStatusBar("Quitting...")
			return m, tea.Quit
		case "up", "k":
			if m.scrollTop > 0 {
				m.scrollTop--
			}
		case "down", "j":
			if m.scrollTop < len(m.lines())-1 {
				m.scrollTop++
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case EventMsg:
		m.apply(download.Event(msg), &cmds)
		cmds = append(cmds, waitForEventCmd(m.events))

	case RunStoppedMsg:
		m.done = true
		for i := range m.rows {
			if m.rows[i].state == rowRunning {
				m.rows[i].state = rowDone
			}
		}
		if !m.statusIsTemp && !m.statusIsError {
			m.setStandardStatus()
		}
		log.Println("TUI: event channel closed")

	case StatusTickMsg:
		if !m.statusIsTemp && !m.statusIsError {
			m.setStandardStatus()
		}
		if !m.done {
			cmds = append(cmds, statusTickCmd(1*time.Second))
		}

	case clearTempStatusMsg:
		if m.statusIsTemp {
			m.statusIsTemp = false
			m.setStandardStatus()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) row(name string) *brokerRow {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].name == name {
			return &m.rows[i]
		}
	}
	m.rows = append(m.rows, brokerRow{name: name})
	return &m.rows[len(m.rows)-1]
}

func (m *Model) apply(e download.Event, cmds *[]tea.Cmd) {
	switch e.Kind {
	case download.BrokerStarted:
		for i := range m.rows {
			if m.rows[i].state == rowRunning {
				m.rows[i].state = rowDone
			}
		}
		m.rows = append(m.rows, brokerRow{name: e.Broker})
		m.updateStatusBar(fmt.Sprintf("Processing %s contract notes...", e.Broker))
	case download.MessagesFound:
		m.row(e.Broker).found = e.Count
	case download.NoMessages:
		m.row(e.Broker).state = rowDone
	case download.FileWritten:
		r := m.row(e.Broker)
		r.files = append(r.files, e.File)
		m.showTemporaryStatus("Downloaded: "+e.File, 3*time.Second, cmds)
	case download.MessageFailed:
		r := m.row(e.Broker)
		r.errs = append(r.errs, fmt.Sprintf("message %s: %v", e.MessageID, e.Err))
	case download.BrokerFailed:
		r := m.row(e.Broker)
		r.state = rowFailed
		r.errs = append(r.errs, e.Err.Error())
		m.updateStatusError(fmt.Sprintf("%s: %v", e.Broker, e.Err))
	case download.Finished:
		m.report = e.Report
		for i := range m.rows {
			if m.rows[i].state == rowRunning {
				m.rows[i].state = rowDone
			}
		}
		if e.Report != nil {
			if e.Report.Failed() {
				m.updateStatusError(e.Report.Summary())
			} else {
				m.updateStatusBar(e.Report.Summary())
			}
		}
	}
}

func (m *Model) showTemporaryStatus(text string, duration time.Duration, cmds *[]tea.Cmd) {
	if m.statusIsError {
		return
	}
	m.statusBarText = text
	m.statusIsTemp = true
	*cmds = append(*cmds, tea.Tick(duration, func(t time.Time) tea.Msg {
		return clearTempStatusMsg{}
	}))
}

func (m *Model) updateStatusBar(text string) {
	m.statusBarText = text
	m.statusIsError = false
	m.statusIsTemp = false
}

func (m *Model) updateStatusError(text string) {
	m.statusBarText = text
	m.statusIsError = true
	m.statusIsTemp = false
}

func (m *Model) setStandardStatus() {
	if m.statusIsTemp {
		return
	}
	state := "Running"
	if m.done {
		state = "Done"
	}
	files := 0
	for _, r := range m.rows {
		files += len(r.files)
	}
	elapsed := time.Since(m.started).Round(time.Second)
	status := fmt.Sprintf(" %s | %v | %s ", state, elapsed, plural(files, "file"))
	m.updateStatusBar(status + "| [Q/Ctrl+C]:Quit | [↑↓/jk]:Scroll")
}

func (m Model) lines() []string {
	var out []string
	for _, r := range m.rows {
		out = append(out, formatBrokerRow(r, m.spinner.View(), m.width)...)
	}
	return out
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing terminal size..."
	}

	title := TitleStyle.Render("Contract Notes")
	header := fmt.Sprintf("%s %s", HeaderKeyStyle.Render("Saving to:"), truncate(m.dir, m.width-12))
	statusBar := m.renderStatusBar()

	bodyHeight := m.height - lipgloss.Height(title) - lipgloss.Height(header) - lipgloss.Height(statusBar)
	lines := m.lines()
	var body string
	switch {
	case len(lines) == 0 && m.done:
		body = NoticeStyle.Render("No enabled brokers.")
	case len(lines) == 0:
		body = NoticeStyle.Render(m.spinner.View() + " Starting...")
	default:
		body = joinLines(visibleLines(lines, m.scrollTop, bodyHeight))
	}
	body = lipgloss.NewStyle().Height(max(bodyHeight, 0)).Render(body)

	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, header, body, statusBar))
}

func (m Model) renderStatusBar() string {
	styleToUse := StatusBarNormalStyle
	if m.statusIsError {
		styleToUse = StatusBarErrorStyle
	} else if m.statusIsTemp {
		styleToUse = StatusBarSuccessStyle
	}
	return styleToUse.Width(m.width).Render(truncate(m.statusBarText, m.width))
}
