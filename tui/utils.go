package tui

import (
	"fmt"
	"strings"
)

// truncate shortens a string to a max length, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// formatBrokerRow renders one broker with its files and errors below it.
// spin is shown in front of a broker that is still running.
func formatBrokerRow(r brokerRow, spin string, width int) []string {
	var mark, detail string
	switch r.state {
	case rowRunning:
		mark = spin
		detail = BrokerPendingStyle.Render("searching...")
		if r.found > 0 {
			detail = BrokerPendingStyle.Render(fmt.Sprintf("%s found", plural(r.found, "message")))
		}
	case rowDone:
		mark = BrokerDoneStyle.Render(MarkDone)
		if r.found == 0 {
			detail = BrokerPendingStyle.Render("no messages found")
		} else {
			detail = BrokerDoneStyle.Render(fmt.Sprintf("%s, %s", plural(r.found, "message"), plural(len(r.files), "file")))
		}
	case rowFailed:
		mark = BrokerFailedStyle.Render(MarkFailed)
		detail = BrokerFailedStyle.Render("failed")
	}
	if len(r.errs) > 0 && r.state != rowFailed {
		detail += " " + BrokerFailedStyle.Render(fmt.Sprintf("(%s)", plural(len(r.errs), "error")))
	}

	lines := []string{fmt.Sprintf("%s %s  %s", mark, BrokerNameStyle.Render(r.name), detail)}
	for _, f := range r.files {
		lines = append(lines, FileStyle.Render(truncate(f, width-4)))
	}
	for _, e := range r.errs {
		lines = append(lines, ErrorLineStyle.Render(truncate(e, width-4)))
	}
	return lines
}

// visibleLines keeps at most height lines starting at top.
func visibleLines(lines []string, top, height int) []string {
	if height <= 0 {
		return nil
	}
	if top > len(lines)-height {
		top = len(lines) - height
	}
	if top < 0 {
		top = 0
	}
	end := top + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[top:end]
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }
