// Package mailer sends candidate-facing email through AWS SES and
// builds the calendar attachments for scheduled interviews.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/hireops/hireops/internal/config"
)

// Attachment is a file attached to an outbound message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Sender delivers outbound messages. The pipeline depends on this
// interface so tests can capture sends.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SESMailer sends through AWS SES v2
type SESMailer struct {
	client   *sesv2.Client
	from     string
	fromName string
}

// NewSESMailer creates the SES sender using the default AWS credential
// chain for the configured region.
func NewSESMailer(ctx context.Context, cfg appconfig.SESConfig) (*SESMailer, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("ses from_address not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESMailer{
		client:   sesv2.NewFromConfig(awsCfg),
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
	}, nil
}

// Send delivers one message. Messages with attachments go out as raw
// MIME; plain messages use the simple SES content type.
func (m *SESMailer) Send(ctx context.Context, msg *Message) error {
	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
	}

	if len(msg.Attachments) == 0 {
		content := &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")},
			},
		}
		if msg.TextBody != "" {
			content.Body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
		}
		input.Content = &types.EmailContent{Simple: content}
	} else {
		raw, err := buildRawMessage(from, msg)
		if err != nil {
			return fmt.Errorf("build raw message: %w", err)
		}
		input.Content = &types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	if result.MessageId != nil {
		log.Printf("[mailer] sent %q to %s (id: %s)", msg.Subject, msg.To, *result.MessageId)
	}
	return nil
}

// buildRawMessage assembles a multipart/mixed MIME message with a
// multipart/alternative body part and base64 attachments.
func buildRawMessage(from string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer

	mixedBoundary := "hireops-mixed-0001"
	altBoundary := "hireops-alt-0001"

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)

	// body: text + html alternatives
	fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)

	if msg.TextBody != "" {
		fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.TextBody)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(msg.HTMLBody)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s--\r\n", altBoundary)

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
		fmt.Fprintf(&buf, "Content-Type: %s; name=%q\r\n", contentType, att.Filename)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename)

		encoded := base64.StdEncoding.EncodeToString(att.Content)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mixedBoundary)

	return buf.Bytes(), nil
}

// LogMailer logs messages instead of sending them. Used when SES is
// not configured so the pipeline keeps moving in development.
type LogMailer struct{}

// Send logs the message summary
func (LogMailer) Send(_ context.Context, msg *Message) error {
	log.Printf("[mailer] (dry run) would send %q to %s (%d attachments)",
		msg.Subject, msg.To, len(msg.Attachments))
	return nil
}
