package dto

import "github.com/noah-isme/daily-update-api/pkg/mailer"

// EmailPayload is one raw email posted to the send endpoints.
type EmailPayload struct {
	To      []string `json:"to" binding:"required,min=1,dive,email"`
	ReplyTo string   `json:"replyTo" binding:"omitempty,email"`
	Subject string   `json:"subject" binding:"required"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Message converts the payload into a transport-neutral message.
func (p EmailPayload) Message() *mailer.Message {
	return &mailer.Message{
		To:      append([]string(nil), p.To...),
		ReplyTo: p.ReplyTo,
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
	}
}

// SendEmailRequest sends a single email.
type SendEmailRequest struct {
	EmailPayload
	Transport  string `json:"transport"`
	MaxRetries int    `json:"maxRetries" binding:"gte=0,lte=10"`
}

// BatchEmailRequest sends several emails in order over one transport.
type BatchEmailRequest struct {
	Transport  string         `json:"transport"`
	MaxRetries int            `json:"maxRetries" binding:"gte=0,lte=10"`
	Emails     []EmailPayload `json:"emails" binding:"required,min=1,max=500,dive"`
}

// SendEmailResponse reports a single send.
type SendEmailResponse struct {
	MessageID string `json:"messageId"`
	Transport string `json:"transport"`
	Attempts  int    `json:"attempts"`
}
