// Package download runs broker searches and stores their attachments.
package download

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bassamadnan/contractnotes/attachment"
	"github.com/bassamadnan/contractnotes/config"
	"github.com/bassamadnan/contractnotes/mailbox"
	"github.com/bassamadnan/contractnotes/query"
)

// Orchestrator downloads broker attachments one message at a time.
type Orchestrator struct {
	mailbox   mailbox.Mailbox
	extractor *attachment.Extractor
	writer    *Writer
	observer  Observer
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

// WithClock overrides time.Now for the date window.
func WithClock(now func() time.Time) Option {
	return func(orc *Orchestrator) { orc.now = now }
}

// WithNestedParts makes extraction descend into nested multipart parts.
func WithNestedParts(nested bool) Option {
	return func(orc *Orchestrator) { orc.extractor.Nested = nested }
}

// New returns an orchestrator reading from mb and writing through w.
func New(mb mailbox.Mailbox, w *Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		mailbox:   mb,
		extractor: attachment.NewExtractor(mb),
		writer:    w,
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll processes the enabled brokers in order. A failing broker does not
// stop the ones after it. A Finished event carrying the report is always
// emitted last.
func (o *Orchestrator) RunAll(ctx context.Context, brokers []config.Broker, days int) *Report {
	report := &Report{RunID: uuid.NewString()}
	log.Printf("Orchestrator: run %s started, %d broker(s), %d day window", report.RunID, len(brokers), days)

	for _, b := range brokers {
		if !b.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		report.Brokers = append(report.Brokers, o.Run(ctx, b, days))
	}

	log.Printf("Orchestrator: run %s finished: %s", report.RunID, report.Summary())
	o.observer.Notify(Event{Kind: Finished, Report: report})
	return report
}

// Run searches for one broker's messages within the last days and writes
// every attachment found.
func (o *Orchestrator) Run(ctx context.Context, b config.Broker, days int) BrokerResult {
	q := query.BuildWithin(b, days, o.now())
	res := BrokerResult{Broker: b.Name, Query: q.String()}
	o.observer.Notify(Event{Kind: BrokerStarted, Broker: b.Name})
	log.Printf("Orchestrator: %s: query %q", b.Name, res.Query)

	if err := o.writer.EnsureDir(); err != nil {
		return o.failBroker(res, err)
	}

	summaries, err := o.mailbox.ListMessages(ctx, q)
	if err != nil {
		return o.failBroker(res, err)
	}
	res.Messages = len(summaries)
	if len(summaries) == 0 {
		log.Printf("Orchestrator: %s: no messages found", b.Name)
		o.observer.Notify(Event{Kind: NoMessages, Broker: b.Name})
		return res
	}
	o.observer.Notify(Event{Kind: MessagesFound, Broker: b.Name, Count: len(summaries)})

	for _, s := range summaries {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		o.processMessage(ctx, b.Name, s.ID, &res)
	}
	return res
}

// processMessage records failures on res instead of returning them so one
// bad message never hides the others.
func (o *Orchestrator) processMessage(ctx context.Context, broker, id string, res *BrokerResult) {
	msg, err := o.mailbox.GetMessage(ctx, id)
	if err != nil {
		o.failMessage(broker, id, err, res)
		return
	}
	for f, err := range o.extractor.Extract(ctx, msg, msg.Header("Date")) {
		if err != nil {
			o.failMessage(broker, id, err, res)
			continue
		}
		path, err := o.writer.Write(f)
		if err != nil {
			o.failMessage(broker, id, err, res)
			continue
		}
		res.Files = append(res.Files, path)
		log.Printf("Orchestrator: %s: downloaded %s", broker, path)
		o.observer.Notify(Event{Kind: FileWritten, Broker: broker, MessageID: id, File: filepath.Base(path), Path: path})
	}
}

func (o *Orchestrator) failMessage(broker, id string, err error, res *BrokerResult) {
	log.Printf("Orchestrator: %s: message %s: %v", broker, id, err)
	res.Failures = append(res.Failures, MessageFailure{MessageID: id, Err: err})
	o.observer.Notify(Event{Kind: MessageFailed, Broker: broker, MessageID: id, Err: err})
}

func (o *Orchestrator) failBroker(res BrokerResult, err error) BrokerResult {
	log.Printf("Orchestrator: %s: %v", res.Broker, err)
	res.Err = err
	o.observer.Notify(Event{Kind: BrokerFailed, Broker: res.Broker, Err: err})
	return res
}
