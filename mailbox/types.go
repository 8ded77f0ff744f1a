package mailbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/bassamadnan/contractnotes/query"
)

// Summary is the minimal handle returned by a search.
type Summary struct {
	ID string
}

// Header is a single message header as returned by the provider.
type Header struct {
	Name  string
	Value string
}

// Body carries a part's payload. Exactly one of Data (base64url) or
// AttachmentID is expected to be set.
type Body struct {
	Data         string
	AttachmentID string
}

// Inline reports whether the part's data was delivered with the message.
func (b Body) Inline() bool { return b.Data != "" }

// Part is a node of a message's MIME tree.
type Part struct {
	MimeType string
	Filename string
	Body     Body
	Parts    []*Part
}

// IsMultipart reports whether the part is a container for nested parts.
func (p *Part) IsMultipart() bool {
	return len(p.Parts) > 0 || strings.HasPrefix(strings.ToLower(p.MimeType), "multipart/")
}

// Message is a fully fetched message.
type Message struct {
	ID      string
	Headers []Header
	Payload *Part
}

// Header returns the first header value matching name, case-insensitively.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// AttachmentFetcher resolves attachments that were returned by reference.
type AttachmentFetcher interface {
	// FetchAttachment returns the base64url encoded attachment data.
	FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Mailbox is the narrow mail provider surface the downloader needs.
type Mailbox interface {
	AttachmentFetcher
	ListMessages(ctx context.Context, q query.Query) ([]Summary, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// APIError wraps a failed call to the mail provider.
type APIError struct {
	Op  string
	ID  string
	Err error
}

func (e *APIError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("mail api %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mail api %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
