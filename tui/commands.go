package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bassamadnan/contractnotes/download"
)

// waitForEventCmd listens on the event channel and sends an EventMsg when an event arrives.
// The model re-queues it after every event until the channel is closed.
func waitForEventCmd(events <-chan download.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return RunStoppedMsg{}
		}
		return EventMsg(ev)
	}
}

// statusTickCmd creates a ticker for updating the status bar periodically.
func statusTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return StatusTickMsg{Time: t}
	})
}
