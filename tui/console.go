package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/bassamadnan/contractnotes/download"
)

// Printer writes one line per progress event. It is the default output
// when the interactive view is not requested.
type Printer struct {
	w io.Writer
	r *lipgloss.Renderer
}

var _ download.Observer = (*Printer)(nil)

// NewPrinter returns a printer writing to w. Colors are used only when w
// is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, r: lipgloss.NewRenderer(w)}
}

func (p *Printer) style(s lipgloss.Style) lipgloss.Style {
	return s.Renderer(p.r)
}

func (p *Printer) Notify(e download.Event) {
	switch e.Kind {
	case download.BrokerStarted:
		p.println(p.style(BrokerNameStyle).Render(fmt.Sprintf("Processing %s contract notes...", e.Broker)))
	case download.MessagesFound:
		p.println(p.style(NoticeStyle).Render(fmt.Sprintf("Found %s matching criteria...", plural(e.Count, "message"))))
	case download.NoMessages:
		p.println(p.style(NoticeStyle).Render("No messages found."))
	case download.FileWritten:
		p.println(p.style(FileStyle).Render("Downloaded: " + e.File))
	case download.MessageFailed:
		p.println(p.style(ErrorLineStyle).Render(fmt.Sprintf("Error processing message %s: %v", e.MessageID, e.Err)))
	case download.BrokerFailed:
		p.println(p.style(ErrorLineStyle).Render(fmt.Sprintf("Error processing %s: %v", e.Broker, e.Err)))
	case download.Finished:
		if e.Report == nil {
			return
		}
		s := p.style(BrokerDoneStyle)
		if e.Report.Failed() {
			s = p.style(BrokerFailedStyle)
		}
		p.println(s.Render(e.Report.Summary()))
	}
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}
