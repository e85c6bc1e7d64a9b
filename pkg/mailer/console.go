package mailer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsoleSender logs messages instead of delivering them. Used in development.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender builds a logging transport.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Name implements Sender.
func (s *ConsoleSender) Name() string { return "console" }

// Send implements Sender.
func (s *ConsoleSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.logger.Info("email (console transport)",
		zap.String("message_id", id),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Int("text_bytes", len(msg.Text)),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return &Result{MessageID: id, Transport: s.Name(), SentAt: time.Now().UTC()}, nil
}

// Verify implements Sender.
func (s *ConsoleSender) Verify(context.Context) error { return nil }
