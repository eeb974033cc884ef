package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// APISender posts messages to an HTTP transactional email API
// (Resend-compatible JSON body, bearer token auth)
type APISender struct {
	url    string
	apiKey string
	from   mail.Address
	client *http.Client
	logger *zap.Logger
}

// NewAPISender creates an API sender. A nil client gets one with cfg.Timeout.
func NewAPISender(cfg config.MailConfig, from mail.Address, client *http.Client, logger *zap.Logger) *APISender {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &APISender{url: cfg.APIURL, apiKey: cfg.APIKey, from: from, client: client, logger: logger}
}

type apiAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type apiRequest struct {
	From        string          `json:"from"`
	To          []string        `json:"to"`
	ReplyTo     string          `json:"reply_to,omitempty"`
	Subject     string          `json:"subject"`
	HTML        string          `json:"html,omitempty"`
	Text        string          `json:"text,omitempty"`
	Attachments []apiAttachment `json:"attachments,omitempty"`
}

// Send implements Sender
func (s *APISender) Send(ctx context.Context, msg Message) error {
	msg = withDefaultFrom(msg, s.from)
	if err := msg.Validate(); err != nil {
		return err
	}

	req := apiRequest{
		From:    msg.From.String(),
		To:      msg.recipients(),
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, att := range msg.Attachments {
		req.Attachments = append(req.Attachments, apiAttachment{
			Filename:    att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Data),
			ContentType: att.ContentType,
		})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("mail api: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail api: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail api: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.Info("Email sent", zap.String("transport", "api"), zap.Strings("to", msg.recipients()), zap.String("subject", msg.Subject))
	return nil
}
