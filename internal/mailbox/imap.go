package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/hireops/hireops/internal/store"
)

// imapSession is the production Session over go-imap v2
type imapSession struct {
	client  *imapclient.Client
	updates chan struct{}
}

// DialIMAP opens a TLS IMAP connection, logs in, and selects the
// watched folder. It is the production Dialer.
func DialIMAP(_ context.Context, creds Credentials) (Session, error) {
	folder := creds.Folder
	if folder == "" {
		folder = "INBOX"
	}

	updates := make(chan struct{}, 1)
	options := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages != nil {
					select {
					case updates <- struct{}{}:
					default:
					}
				}
			},
		},
	}

	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)
	client, err := imapclient.DialTLS(addr, options)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := client.Login(creds.Username, creds.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("login as %s: %w", creds.Username, err)
	}
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	return &imapSession{client: client, updates: updates}, nil
}

// FetchSince pulls every message with a UID above the watermark
func (s *imapSession) FetchSince(ctx context.Context, sinceUID uint32) ([]*IncomingMessage, error) {
	var uidSet imap.UIDSet
	uidSet.AddRange(imap.UID(sinceUID+1), 0)

	searchData, err := s.client.UIDSearch(&imap.SearchCriteria{
		UID: []imap.UIDSet{uidSet},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("uid search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var fetchSet imap.UIDSet
	for _, uid := range uids {
		fetchSet.AddNum(uid)
	}
	bodySection := &imap.FetchItemBodySection{}
	msgs, err := s.client.Fetch(fetchSet, &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	out := make([]*IncomingMessage, 0, len(msgs))
	for _, m := range msgs {
		in := &IncomingMessage{UID: uint32(m.UID)}
		if env := m.Envelope; env != nil {
			in.Subject = env.Subject
			in.MessageID = env.MessageID
			in.ReceivedAt = env.Date
			if len(env.From) > 0 {
				in.FromName = env.From[0].Name
				in.FromAddress = env.From[0].Addr()
			}
		}
		if in.MessageID == "" {
			in.MessageID = fmt.Sprintf("<uid-%d@%s>", m.UID, "mailbox")
		}
		if raw := m.FindBodySection(bodySection); raw != nil {
			body, atts := parseMessageBody(raw)
			in.BodyText = body
			in.Attachments = atts
		}
		out = append(out, in)
	}
	return out, nil
}

// WaitForUpdates issues IDLE and blocks until new mail, the keepalive
// window, or the context. IMAP servers drop silent IDLE connections
// around 30 minutes, so the keepalive stays under that.
func (s *imapSession) WaitForUpdates(ctx context.Context, keepalive time.Duration) error {
	idleCmd, err := s.client.Idle()
	if err != nil {
		return fmt.Errorf("idle: %w", err)
	}

	timer := time.NewTimer(keepalive)
	defer timer.Stop()

	select {
	case <-s.updates:
	case <-timer.C:
	case <-ctx.Done():
		idleCmd.Close()
		return ctx.Err()
	}

	if err := idleCmd.Close(); err != nil {
		return fmt.Errorf("idle close: %w", err)
	}
	return idleCmd.Wait()
}

func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return s.client.Close()
	}
	return nil
}

// parseMessageBody extracts the text body and attachment metadata from
// a raw RFC 822 message. Resume-looking attachments keep no content
// here; scoring works from the text body.
func parseMessageBody(raw []byte) (string, []store.Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		log.Printf("[mailbox] parse message: %v", err)
		return string(raw), nil
	}

	var body strings.Builder
	var atts []store.Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[mailbox] read part: %v", err)
			break
		}
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			if contentType == "text/plain" || body.Len() == 0 {
				data, _ := io.ReadAll(part.Body)
				if contentType == "text/plain" {
					body.Reset()
					body.Write(data)
				} else if body.Len() == 0 {
					body.Write(data)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			contentType, _, _ := header.ContentType()
			size, _ := io.Copy(io.Discard, part.Body)
			atts = append(atts, store.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int(size),
			})
		}
	}
	return body.String(), atts
}
