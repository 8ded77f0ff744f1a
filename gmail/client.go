package gmail

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bassamadnan/contractnotes/mailbox"
	"github.com/bassamadnan/contractnotes/query"
)

const (
	user     = "me"
	pageSize = 100
)

// Client reads messages through the Gmail REST API.
type Client struct {
	srv *gmail.Service
}

var _ mailbox.Mailbox = (*Client)(nil)

// NewClient creates a client using an authorized HTTP client. Extra options
// are passed to the service, e.g. option.WithEndpoint in tests.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// ListMessages returns every message matching q, following result pages.
func (c *Client) ListMessages(ctx context.Context, q query.Query) ([]mailbox.Summary, error) {
	var out []mailbox.Summary
	call := c.srv.Users.Messages.List(user).Q(q.String()).MaxResults(pageSize)
	err := call.Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			out = append(out, mailbox.Summary{ID: m.Id})
		}
		return nil
	})
	if err != nil {
		return nil, &mailbox.APIError{Op: "list", Err: err}
	}
	log.Printf("Gmail: %d message(s) for %q", len(out), q.String())
	return out, nil
}

// GetMessage fetches the full message including its part tree.
func (c *Client) GetMessage(ctx context.Context, id string) (*mailbox.Message, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, &mailbox.APIError{Op: "get", ID: id, Err: err}
	}
	return convertMessage(msg), nil
}

// FetchAttachment downloads an attachment referenced by id.
func (c *Client) FetchAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	body, err := c.srv.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", &mailbox.APIError{Op: "attachment", ID: messageID, Err: err}
	}
	return body.Data, nil
}

func convertMessage(msg *gmail.Message) *mailbox.Message {
	out := &mailbox.Message{ID: msg.Id}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		out.Headers = append(out.Headers, mailbox.Header{Name: h.Name, Value: h.Value})
	}
	out.Payload = convertPart(msg.Payload)
	return out
}

func convertPart(p *gmail.MessagePart) *mailbox.Part {
	part := &mailbox.Part{MimeType: p.MimeType, Filename: p.Filename}
	if p.Body != nil {
		part.Body = mailbox.Body{Data: p.Body.Data, AttachmentID: p.Body.AttachmentId}
	}
	for _, child := range p.Parts {
		if child != nil {
			part.Parts = append(part.Parts, convertPart(child))
		}
	}
	return part
}
