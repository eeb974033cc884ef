// Package mail sends transactional email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	ErrNoRecipients = errors.New("mail: message has no recipients")
	ErrNoSubject    = errors.New("mail: message has no subject")
)

// Attachment is a file sent with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is an outgoing email. From is filled by the sender when empty.
type Message struct {
	From        mail.Address
	To          []mail.Address
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Validate checks the fields every transport needs
func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to.Address); err != nil {
			return fmt.Errorf("mail: invalid recipient %q: %w", to.Address, err)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrNoSubject
	}
	return nil
}

func (m *Message) recipients() []string {
	out := make([]string, len(m.To))
	for i, to := range m.To {
		out[i] = to.Address
	}
	return out
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the sender selected by cfg.Driver
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	switch cfg.Driver {
	case "smtp":
		return NewSMTPSender(cfg, from, logger), nil
	case "api":
		return NewAPISender(cfg, from, nil, logger), nil
	case "log", "":
		return NewLogSender(from, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

func withDefaultFrom(msg Message, from mail.Address) Message {
	if msg.From.Address == "" {
		msg.From.Address = from.Address
	}
	if msg.From.Name == "" {
		msg.From.Name = from.Name
	}
	return msg
}
