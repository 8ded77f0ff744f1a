// Package attachment turns fetched messages into dated attachment files.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/bassamadnan/contractnotes/mailbox"
)

// File is a decoded attachment ready to be written.
type File struct {
	Name      string // cleaned and dated, ready to use as the file name
	Data      []byte
	MessageID string
	PartIndex int
}

// ExtractionError is a part that could not be turned into a File.
type ExtractionError struct {
	MessageID string
	PartIndex int
	Filename  string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("message %s part %d (%s): %v", e.MessageID, e.PartIndex, e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

var errNoData = errors.New("part has neither inline data nor an attachment id")

// Extractor walks message parts and decodes attachments.
type Extractor struct {
	fetcher mailbox.AttachmentFetcher
	// Nested walks into multipart containers below the top level.
	// Off by default: only top-level parts are considered.
	Nested bool
}

// NewExtractor returns an extractor resolving referenced attachments
// through f.
func NewExtractor(f mailbox.AttachmentFetcher) *Extractor {
	return &Extractor{fetcher: f}
}

// Extract yields the attachments of msg one at a time. dateHeader is the
// raw Date header; when it cannot be parsed names are left unprefixed.
// Every range over the result walks the message again.
func (e *Extractor) Extract(ctx context.Context, msg *mailbox.Message, dateHeader string) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		if msg == nil || msg.Payload == nil || len(msg.Payload.Parts) == 0 {
			return
		}
		date, ok := ParseDate(dateHeader)
		if !ok && dateHeader != "" {
			log.Printf("Extractor: unrecognised Date header %q on message %s, names will not be dated", dateHeader, msg.ID)
		}

		index := 0
		for part := range e.parts(msg.Payload) {
			if part.Filename == "" {
				if part.IsMultipart() && !e.Nested {
					log.Printf("Extractor: message %s: parts inside %s container are not searched", msg.ID, part.MimeType)
				}
				continue
			}
			i := index
			index++

			data, err := e.resolve(ctx, msg.ID, part)
			if err != nil {
				err = &ExtractionError{MessageID: msg.ID, PartIndex: i, Filename: part.Filename, Err: err}
				if !yield(File{}, err) {
					return
				}
				continue
			}
			f := File{Name: fileName(part.Filename, date), Data: data, MessageID: msg.ID, PartIndex: i}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// parts yields the top-level parts of payload, or all parts depth-first
// when Nested is set.
func (e *Extractor) parts(payload *mailbox.Part) iter.Seq[*mailbox.Part] {
	return func(yield func(*mailbox.Part) bool) {
		var walk func(parts []*mailbox.Part) bool
		walk = func(parts []*mailbox.Part) bool {
			for _, p := range parts {
				if p == nil {
					continue
				}
				if !yield(p) {
					return false
				}
				if e.Nested && p.Filename == "" && len(p.Parts) > 0 {
					if !walk(p.Parts) {
						return false
					}
				}
			}
			return true
		}
		walk(payload.Parts)
	}
}

func (e *Extractor) resolve(ctx context.Context, messageID string, part *mailbox.Part) ([]byte, error) {
	encoded := part.Body.Data
	if !part.Body.Inline() {
		if part.Body.AttachmentID == "" {
			return nil, errNoData
		}
		if e.fetcher == nil {
			return nil, errors.New("attachment is referenced by id but no fetcher is configured")
		}
		var err error
		encoded, err = e.fetcher.FetchAttachment(ctx, messageID, part.Body.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("fetching attachment %s: %w", part.Body.AttachmentID, err)
		}
	}
	data, err := Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}
	return data, nil
}

// Decode decodes URL-safe base64 with or without padding.
func Decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
