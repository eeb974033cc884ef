package mail

import (
	"context"
	"net/mail"
	"sync"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them and keeps
// them for inspection. Used in development and tests.
type LogSender struct {
	from   mail.Address
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender creates a log sender
func NewLogSender(from mail.Address, logger *zap.Logger) *LogSender {
	return &LogSender{from: from, logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	msg = withDefaultFrom(msg, s.from)
	if err := msg.Validate(); err != nil {
		return err
	}
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	s.logger.Info("Email (not delivered)",
		zap.String("from", msg.From.String()),
		zap.Strings("to", msg.recipients()),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names))

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of every message sent so far
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
