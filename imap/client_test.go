package imap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bassamadnan/contractnotes/attachment"
	"github.com/bassamadnan/contractnotes/auth"
	"github.com/bassamadnan/contractnotes/mailbox"
	"github.com/bassamadnan/contractnotes/query"
)

const contractNoteEML = "From: Paytm Money <noreply@paytmmoney.com>\r\n" +
	"To: investor@example.com\r\n" +
	"Subject: Trade Successful - Consolidated Contract Note\r\n" +
	"Date: Mon, 11 Dec 2023 09:15:00 +0530\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find your contract note attached.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Please find your contract note attached.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf; name=\"note.pdf\"\r\n" +
	"Content-Disposition: attachment; filename=\"note.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQ=\r\n" +
	"--outer--\r\n"

func TestParseMessage_KeepsPartTree(t *testing.T) {
	msg, err := ParseMessage("42", []byte(contractNoteEML))

	require.NoError(t, err)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, "Mon, 11 Dec 2023 09:15:00 +0530", msg.Header("Date"))
	assert.Equal(t, "multipart/mixed", msg.Payload.MimeType)
	require.Len(t, msg.Payload.Parts, 2)

	alt := msg.Payload.Parts[0]
	assert.Equal(t, "multipart/alternative", alt.MimeType)
	assert.True(t, alt.IsMultipart())
	require.Len(t, alt.Parts, 2)
	assert.Empty(t, alt.Parts[0].Filename)
	assert.False(t, alt.Parts[0].Body.Inline())

	part := msg.Payload.Parts[1]
	assert.Equal(t, "note.pdf", part.Filename)
	assert.Equal(t, "application/pdf", part.MimeType)
	assert.True(t, part.Body.Inline())

	var files []attachment.File
	for f, err := range attachment.NewExtractor(nil).Extract(context.Background(), msg, msg.Header("Date")) {
		require.NoError(t, err)
		files = append(files, f)
	}
	require.Len(t, files, 1)
	assert.Equal(t, "2023-12-11_note.pdf", files[0].Name)
	assert.Equal(t, "%PDF-1.4", string(files[0].Data))
}

const forwardedEML = "From: Dhan <noreply@dhan.co>\r\n" +
	"Subject: Contract Note\r\n" +
	"Date: 12 Dec 2023 18:00:00 +0530\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/mixed; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"deep.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"ZGVlcA==\r\n" +
	"--inner--\r\n" +
	"--outer--\r\n"

func TestParseMessage_NestedAttachmentFollowsExtractorSetting(t *testing.T) {
	msg, err := ParseMessage("7", []byte(forwardedEML))
	require.NoError(t, err)

	collect := func(ex *attachment.Extractor) []string {
		var names []string
		for f, err := range ex.Extract(context.Background(), msg, msg.Header("Date")) {
			require.NoError(t, err)
			names = append(names, f.Name)
		}
		return names
	}

	assert.Empty(t, collect(attachment.NewExtractor(nil)))

	nested := attachment.NewExtractor(nil)
	nested.Nested = true
	assert.Equal(t, []string{"2023-12-12_deep.pdf"}, collect(nested))
}

func TestParseMessage_PlainMessageHasNoParts(t *testing.T) {
	raw := "From: a@example.com\r\nSubject: hi\r\nDate: 11 Dec 2023 10:00:00 +0000\r\n" +
		"Content-Type: text/plain\r\n\r\nJust text.\r\n"

	msg, err := ParseMessage("1", []byte(raw))

	require.NoError(t, err)
	assert.Empty(t, msg.Payload.Parts)
}

func TestCriteria(t *testing.T) {
	after := time.Date(2023, time.December, 11, 0, 0, 0, 0, time.UTC)
	c := criteria(query.Query{From: "dhan.co", Subject: "Contract Note", After: after})

	assert.True(t, after.Equal(c.Since))
	require.Len(t, c.Header, 2)
	assert.Equal(t, "From", c.Header[0].Key)
	assert.Equal(t, "dhan.co", c.Header[0].Value)
	assert.Equal(t, "Subject", c.Header[1].Key)
	assert.Equal(t, "Contract Note", c.Header[1].Value)

	empty := criteria(query.Query{})
	assert.True(t, empty.Since.IsZero())
	assert.Empty(t, empty.Header)
}

func TestFetchAttachment_Unsupported(t *testing.T) {
	_, err := (&Client{}).FetchAttachment(context.Background(), "7", "x")

	var apiErr *mailbox.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.ErrorIs(t, err, ErrNoAttachmentRefs)
	assert.True(t, strings.Contains(err.Error(), "7"))
}

// serveRejectingLogin answers on conn like a server that refuses every
// LOGIN and acknowledges any other command.
func serveRejectingLogin(conn net.Conn) {
	go func() {
		defer conn.Close()
		r := bufio.NewReader(conn)
		fmt.Fprint(conn, "* OK [CAPABILITY IMAP4rev1] ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			tag := fields[0]
			switch strings.ToUpper(fields[1]) {
			case "LOGIN":
				fmt.Fprintf(conn, "%s NO [AUTHENTICATIONFAILED] Invalid credentials\r\n", tag)
			case "LOGOUT":
				fmt.Fprintf(conn, "* BYE\r\n%s OK done\r\n", tag)
				return
			default:
				fmt.Fprintf(conn, "%s OK done\r\n", tag)
			}
		}
	}()
}

func TestOpen_LoginFailureIsAuthError(t *testing.T) {
	client, server := net.Pipe()
	serveRejectingLogin(server)

	_, err := open(imapclient.New(client, nil), Config{Username: "investor@example.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, auth.IsAuthError(err))
	assert.Contains(t, err.Error(), "investor@example.com")
}
