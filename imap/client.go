// Package imap reads broker emails from an IMAP server.
package imap

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/bassamadnan/contractnotes/auth"
	"github.com/bassamadnan/contractnotes/mailbox"
	"github.com/bassamadnan/contractnotes/query"
)

func init() {
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ErrNoAttachmentRefs is returned by FetchAttachment: IMAP messages carry
// their attachments inline.
var ErrNoAttachmentRefs = errors.New("imap messages have no attachment references")

// Config holds connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// Client keeps one authenticated IMAP session with the mailbox selected.
type Client struct {
	conn *imapclient.Client
}

var _ mailbox.Mailbox = (*Client)(nil)

// Dial connects, logs in and selects the configured mailbox.
func Dial(_ context.Context, cfg Config) (*Client, error) {
	addr := cfg.Host + ":" + cfg.Port

	var conn *imapclient.Client
	var err error
	if cfg.TLS {
		conn, err = imapclient.DialTLS(addr, nil)
	} else {
		conn, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	return open(conn, cfg)
}

func open(conn *imapclient.Client, cfg Config) (*Client, error) {
	if err := conn.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		conn.Close()
		return nil, &auth.AuthError{Op: "imap login", Err: fmt.Errorf("%s: %w", cfg.Username, err)}
	}
	name := cfg.Mailbox
	if name == "" {
		name = "INBOX"
	}
	if _, err := conn.Select(name, nil).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", name, err)
	}
	return &Client{conn: conn}, nil
}

// Close logs out and closes the connection.
func (c *Client) Close() error {
	if err := c.conn.Logout().Wait(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// criteria maps a broker query onto IMAP SEARCH keys.
func criteria(q query.Query) *imap.SearchCriteria {
	c := &imap.SearchCriteria{Since: q.After}
	if q.From != "" {
		c.Header = append(c.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: q.From})
	}
	if q.Subject != "" {
		c.Header = append(c.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: q.Subject})
	}
	return c
}

// ListMessages returns the UIDs matching q as message ids.
func (c *Client) ListMessages(_ context.Context, q query.Query) ([]mailbox.Summary, error) {
	data, err := c.conn.UIDSearch(criteria(q), nil).Wait()
	if err != nil {
		return nil, &mailbox.APIError{Op: "search", Err: err}
	}
	var out []mailbox.Summary
	for _, uid := range data.AllUIDs() {
		out = append(out, mailbox.Summary{ID: strconv.FormatUint(uint64(uid), 10)})
	}
	log.Printf("IMAP: %d message(s) for %q", len(out), q.String())
	return out, nil
}

// GetMessage fetches and parses the full message with the given UID.
func (c *Client) GetMessage(_ context.Context, id string) (*mailbox.Message, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, &mailbox.APIError{Op: "fetch", ID: id, Err: fmt.Errorf("invalid uid: %w", err)}
	}

	section := &imap.FetchItemBodySection{Peek: true}
	cmd := c.conn.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer cmd.Close()

	msg := cmd.Next()
	if msg == nil {
		return nil, &mailbox.APIError{Op: "fetch", ID: id, Err: errors.New("message not found")}
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, &mailbox.APIError{Op: "fetch", ID: id, Err: err}
	}
	if err := cmd.Close(); err != nil {
		return nil, &mailbox.APIError{Op: "fetch", ID: id, Err: err}
	}

	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, &mailbox.APIError{Op: "fetch", ID: id, Err: errors.New("empty body section")}
	}
	parsed, err := ParseMessage(id, raw)
	if err != nil {
		return nil, &mailbox.APIError{Op: "parse", ID: id, Err: err}
	}
	return parsed, nil
}

// FetchAttachment is not supported; see ErrNoAttachmentRefs.
func (c *Client) FetchAttachment(_ context.Context, messageID, _ string) (string, error) {
	return "", &mailbox.APIError{Op: "attachment", ID: messageID, Err: ErrNoAttachmentRefs}
}

// ParseMessage converts a raw RFC 5322 message into the mailbox model,
// keeping the MIME tree: multipart containers become parts with children.
// Parts with a filename carry their decoded content as inline base64url
// data; other leaf parts carry none.
func ParseMessage(id string, raw []byte) (*mailbox.Message, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("reading message: %w", err)
	}

	out := &mailbox.Message{ID: id}
	fields := e.Header.Fields()
	for fields.Next() {
		out.Headers = append(out.Headers, mailbox.Header{Name: fields.Key(), Value: fields.Value()})
	}
	out.Payload, err = convertEntity(e)
	if err != nil {
		return out, err
	}
	return out, nil
}

// tolerable reports entity errors that still leave a readable entity.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func convertEntity(e *message.Entity) (*mailbox.Part, error) {
	mediaType, _, _ := e.Header.ContentType()
	part := &mailbox.Part{MimeType: strings.ToLower(mediaType)}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && (child == nil || !tolerable(err)) {
				return part, fmt.Errorf("reading part: %w", err)
			}
			p, err := convertEntity(child)
			if err != nil {
				return part, err
			}
			part.Parts = append(part.Parts, p)
		}
		return part, nil
	}

	h := mail.AttachmentHeader{Header: e.Header}
	filename, _ := h.Filename()
	if filename == "" {
		return part, nil
	}
	data, err := io.ReadAll(e.Body)
	if err != nil {
		return part, fmt.Errorf("reading attachment %s: %w", filename, err)
	}
	part.Filename = filename
	part.Body = mailbox.Body{Data: base64.URLEncoding.EncodeToString(data)}
	return part, nil
}
