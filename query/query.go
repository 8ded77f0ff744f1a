// Package query builds mailbox search queries for broker emails.
package query

import (
	"strings"
	"time"

	"github.com/bassamadnan/contractnotes/config"
)

// AfterLayout is the date token format Gmail expects for after:.
const AfterLayout = "2006/01/02"

// Query is a broker search. Gmail consumes String(); IMAP uses the fields.
type Query struct {
	From    string
	Subject string
	After   time.Time // zero means no date window
}

// Build returns the sender/subject query for a broker, without a date window.
func Build(b config.Broker) Query {
	return Query{From: b.SenderDomain, Subject: b.SubjectPhrase}
}

// BuildWithin is Build followed by Within.
func BuildWithin(b config.Broker, days int, now time.Time) Query {
	return Build(b).Within(days, now)
}

// Within restricts the query to messages after the calendar date that is
// days before now.
func (q Query) Within(days int, now time.Time) Query {
	y, m, d := now.Date()
	q.After = time.Date(y, m, d-days, 0, 0, 0, 0, now.Location())
	return q
}

// String renders the query in Gmail search syntax.
func (q Query) String() string {
	var parts []string
	if q.From != "" {
		parts = append(parts, "from:"+q.From)
	}
	if q.Subject != "" {
		parts = append(parts, `subject:"`+q.Subject+`"`)
	}
	if !q.After.IsZero() {
		parts = append(parts, "after:"+q.After.Format(AfterLayout))
	}
	return strings.Join(parts, " ")
}
