package download

import (
	"errors"
	"fmt"
	"strings"
)

// MessageFailure records one message, or one part of it, that failed.
type MessageFailure struct {
	MessageID string
	Err       error
}

// BrokerResult is the outcome of processing one broker.
type BrokerResult struct {
	Broker   string
	Query    string
	Messages int
	Files    []string
	Failures []MessageFailure
	Err      error // set when the broker could not be processed at all
}

// Failed reports whether anything went wrong for this broker.
func (r BrokerResult) Failed() bool {
	return r.Err != nil || len(r.Failures) > 0
}

// Report aggregates the results of a run.
type Report struct {
	RunID   string
	Brokers []BrokerResult
}

// Files is the number of files written.
func (r *Report) Files() int {
	n := 0
	for _, b := range r.Brokers {
		n += len(b.Files)
	}
	return n
}

// Failed reports whether any broker or message failed.
func (r *Report) Failed() bool {
	for _, b := range r.Brokers {
		if b.Failed() {
			return true
		}
	}
	return false
}

// Err joins every failure of the run, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, b := range r.Brokers {
		if b.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Broker, b.Err))
		}
		for _, f := range b.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", b.Broker, f.Err))
		}
	}
	return errors.Join(errs...)
}

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	var failed []string
	messages := 0
	for _, b := range r.Brokers {
		messages += b.Messages
		if b.Failed() {
			failed = append(failed, b.Broker)
		}
	}
	s := fmt.Sprintf("%d broker(s), %d message(s), %d file(s) downloaded", len(r.Brokers), messages, r.Files())
	if len(failed) > 0 {
		s += "; failures in " + strings.Join(failed, ", ")
	}
	return s
}
