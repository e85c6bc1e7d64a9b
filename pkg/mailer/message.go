// Package mailer delivers rendered emails over pluggable transports.
package mailer

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// MaxAttachmentBytes caps the combined size of a message's attachments.
const MaxAttachmentBytes = 10 * 1024 * 1024

// Address is a display name plus mailbox.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// String renders the address in RFC 5322 form.
func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
}

// Message is a transport-neutral email.
type Message struct {
	From        Address      `json:"from"`
	To          []string     `json:"to"`
	ReplyTo     string       `json:"replyTo,omitempty"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Tags are free-form labels propagated to transports that support them.
	Tags map[string]string `json:"tags,omitempty"`
}

// Recipient returns the recipients joined for logging and history records.
func (m *Message) Recipient() string {
	if m == nil {
		return ""
	}
	return strings.Join(m.To, ", ")
}

// Result describes an accepted message.
type Result struct {
	MessageID string    `json:"messageId"`
	Transport string    `json:"transport"`
	SentAt    time.Time `json:"sentAt"`
}

// ValidationError lists every problem found on a message.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "Email validation failed: " + strings.Join(e.Problems, ", ")
}

// Validate checks a message before it is handed to a transport.
func Validate(m *Message) error {
	if m == nil {
		return &ValidationError{Problems: []string{"Message is required"}}
	}
	var problems []string
	if len(m.To) == 0 {
		problems = append(problems, "Recipient (to) is required")
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			problems = append(problems, fmt.Sprintf("Invalid recipient address: %s", to))
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		problems = append(problems, "Subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		problems = append(problems, "Email content (html or text) is required")
	}
	total := 0
	for _, a := range m.Attachments {
		total += len(a.Content)
	}
	if total > MaxAttachmentBytes {
		problems = append(problems, "Total attachments size exceeds 10MB limit")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
