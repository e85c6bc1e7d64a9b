package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender delivers messages through the SendGrid v3 web API.
type SendGridSender struct {
	key  string
	host string
}

// NewSendGridSender returns a SendGrid transport. The API key is required.
func NewSendGridSender(apiKey, host string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendGridSender{key: apiKey, host: host}, nil
}

// Name implements Sender.
func (s *SendGridSender) Name() string { return "sendgrid" }

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}

	result := &Result{Transport: s.Name(), SentAt: time.Now().UTC()}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		result.MessageID = ids[0]
	}
	return result, nil
}

// Verify checks the API key by reading the key's scopes.
func (s *SendGridSender) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := sendgrid.GetRequest(s.key, "/v3/scopes", s.host)
	req.Method = http.MethodGet
	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid verify: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid verify: status %d", res.StatusCode)
	}
	return nil
}

func (s *SendGridSender) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(msg.From.Name, msg.From.Email))
	m.Subject = msg.Subject
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}
	m.AddPersonalizations(p)

	// SendGrid requires text/plain to precede text/html.
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	for k, v := range msg.Tags {
		p.SetCustomArg(k, v)
	}
	return m
}
