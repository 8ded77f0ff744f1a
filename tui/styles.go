package tui

import "github.com/charmbracelet/lipgloss"

var (
	AppStyle = lipgloss.NewStyle().Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("255")).Padding(0, 1)

	// Broker rows
	BrokerNameStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"})
	BrokerPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})
	BrokerDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	BrokerFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// File and error lines
	FileStyle      = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("189"))
	ErrorLineStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("203"))
	NoticeStyle    = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})
	HeaderKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	// Status Bar
	StatusBarSuccessStyle = lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	StatusBarNormalStyle  = lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("250")).Padding(0, 1)
	StatusBarErrorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("196")).Foreground(lipgloss.Color("255")).Padding(0, 1)
)

const (
	MarkDone    = "✓"
	MarkFailed  = "✗"
	MarkPending = "·"
)
