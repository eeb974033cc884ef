package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/ribotflow/backend/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testFrom = mail.Address{Name: "RibotFlow", Address: "no-reply@ribotflow.test"}

func testMessage() Message {
	return Message{
		To:      []mail.Address{{Name: "Ana García", Address: "ana@example.com"}},
		Subject: "Presupuesto Q-2026-0001",
		HTML:    "<p>Hola</p>",
		Text:    "Hola",
		Attachments: []Attachment{{
			Filename:    "quote-Q-2026-0001.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.7"),
		}},
	}
}

func TestMessage_Validate(t *testing.T) {
	msg := testMessage()
	assert.NoError(t, msg.Validate())

	msg.To = nil
	assert.ErrorIs(t, msg.Validate(), ErrNoRecipients)

	msg = testMessage()
	msg.Subject = " "
	assert.ErrorIs(t, msg.Validate(), ErrNoSubject)

	msg = testMessage()
	msg.To = []mail.Address{{Address: "not-an-email"}}
	assert.Error(t, msg.Validate())
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.MailConfig{Driver: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.MailConfig{Driver: "smtp", SMTPHost: "smtp.test", SMTPPort: 587}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(config.MailConfig{Driver: "api", APIURL: "https://mail.test"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &APISender{}, s)

	_, err = NewSender(config.MailConfig{Driver: "pigeon"}, nil)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(testFrom, zap.NewNop())
	require.NoError(t, s.Send(context.Background(), testMessage()))

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testFrom.Address, sent[0].From.Address, "default sender applied")
}

func TestBuildMIME(t *testing.T) {
	msg := withDefaultFrom(testMessage(), testFrom)
	raw, err := buildMIME(msg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out := string(raw)
	assert.Contains(t, out, "From: \"RibotFlow\" <no-reply@ribotflow.test>")
	assert.Contains(t, out, "To: =?utf-8?q?Ana_Garc=C3=ADa?= <ana@example.com>")
	assert.Contains(t, out, "Subject: Presupuesto Q-2026-0001")
	assert.Contains(t, out, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, out, "multipart/alternative")
	assert.Contains(t, out, "text/html; charset=utf-8")
	assert.Contains(t, out, "filename=quote-Q-2026-0001.pdf")
	assert.Contains(t, out, "JVBERi0xLjc=") // base64 of %PDF-1.7
	assert.Contains(t, out, "Message-ID: <")
	assert.Contains(t, out, "@ribotflow.test>")
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{SMTPHost: "smtp.test", SMTPPort: 2525, SMTPUser: "u", SMTPPass: "p"}, testFrom, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	s.send = func(addr string, _ smtp.Auth, from string, to []string, _ []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		return nil
	}

	require.NoError(t, s.Send(context.Background(), testMessage()))
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, testFrom.Address, gotFrom)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 rejected") }
	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 rejected")
}

func TestSMTPSender_ContextCancelled(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{SMTPHost: "smtp.test", SMTPPort: 25}, testFrom, zap.NewNop())
	release := make(chan struct{})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Send(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPISender_Send(t *testing.T) {
	var got apiRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	s := NewAPISender(config.MailConfig{APIURL: srv.URL, APIKey: "key-123", Timeout: time.Second}, testFrom, nil, zap.NewNop())
	require.NoError(t, s.Send(context.Background(), testMessage()))

	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, []string{"ana@example.com"}, got.To)
	assert.Equal(t, `"RibotFlow" <no-reply@ribotflow.test>`, got.From)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "JVBERi0xLjc=", got.Attachments[0].Content)
}

func TestAPISender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	s := NewAPISender(config.MailConfig{APIURL: srv.URL}, testFrom, srv.Client(), zap.NewNop())
	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "invalid from")
}

func TestDocumentMessage(t *testing.T) {
	doc := &printing.Document{
		Kind:      printing.KindInvoice,
		Number:    "F-2026-0003",
		Issuer:    printing.Party{Name: "Ribot Estudio", Email: "hola@ribot.test"},
		Recipient: printing.Party{Name: "Ana García"},
		Totals:    service.Totals{Total: decimal.RequireFromString("12100")},
		Locale:    "es-ES",
		Currency:  "EUR",
	}

	msg, err := DocumentMessage(doc, mail.Address{Address: "ana@example.com"}, []byte("%PDF"), "Gracias por su confianza")
	require.NoError(t, err)

	assert.Equal(t, "Factura F-2026-0003 - Ribot Estudio", msg.Subject)
	assert.Equal(t, "hola@ribot.test", msg.ReplyTo)
	assert.Equal(t, "Ribot Estudio", msg.From.Name)
	assert.Contains(t, msg.HTML, "Hola Ana García,")
	assert.Contains(t, msg.HTML, "12.100,00 €")
	assert.Contains(t, msg.Text, "Gracias por su confianza")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "invoice-F-2026-0003.pdf", msg.Attachments[0].Filename)
	assert.True(t, strings.HasPrefix(string(msg.Attachments[0].Data), "%PDF"))
}
