package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"

	"github.com/ribotflow/backend/internal/infrastructure/printing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	for tag, texts := range map[language.Tag][4]string{
		language.Spanish: {"Hola %s,", "Le enviamos %s %s por importe de %s.", "Encontrará el documento adjunto en PDF.", "Un saludo,"},
		language.Catalan: {"Hola %s,", "Us enviem %s %s per un import de %s.", "Trobareu el document adjunt en PDF.", "Salutacions,"},
	} {
		_ = message.SetString(tag, "Hello %s,", texts[0])
		_ = message.SetString(tag, "Please find %s %s for %s.", texts[1])
		_ = message.SetString(tag, "The document is attached as a PDF.", texts[2])
		_ = message.SetString(tag, "Kind regards,", texts[3])
	}
}

var documentEmail = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;font-size:14px;color:#1f2933">
<p>{{.Greeting}}</p>
<p>{{.Intro}}</p>
<p>{{.Attached}}</p>
{{- if .Note}}<p style="white-space:pre-line">{{.Note}}</p>{{end}}
<p>{{.Closing}}<br><strong>{{.Issuer}}</strong></p>
</body></html>`))

type documentEmailView struct {
	Greeting string
	Intro    string
	Attached string
	Note     string
	Closing  string
	Issuer   string
}

// DocumentMessage builds the email carrying a rendered quote or invoice
func DocumentMessage(doc *printing.Document, to mail.Address, pdf []byte, note string) (Message, error) {
	f := printing.NewFormatter(doc.Locale, doc.Currency)
	p := message.NewPrinter(f.Tag())

	title := f.Label(doc.Title())
	name := to.Name
	if name == "" {
		name = doc.Recipient.Name
	}
	view := documentEmailView{
		Greeting: p.Sprintf("Hello %s,", name),
		Intro:    p.Sprintf("Please find %s %s for %s.", title, doc.Number, f.Money(doc.Totals.Total)),
		Attached: p.Sprintf("The document is attached as a PDF."),
		Note:     note,
		Closing:  p.Sprintf("Kind regards,"),
		Issuer:   doc.Issuer.Name,
	}

	var html bytes.Buffer
	if err := documentEmail.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render document email: %w", err)
	}

	text := view.Greeting + "\n\n" + view.Intro + "\n" + view.Attached + "\n\n"
	if note != "" {
		text += note + "\n\n"
	}
	text += view.Closing + "\n" + view.Issuer + "\n"

	msg := Message{
		To:      []mail.Address{to},
		ReplyTo: doc.Issuer.Email,
		Subject: fmt.Sprintf("%s %s - %s", title, doc.Number, doc.Issuer.Name),
		HTML:    html.String(),
		Text:    text,
		Attachments: []Attachment{{
			Filename:    doc.FileName(),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if doc.Issuer.Name != "" {
		msg.From.Name = doc.Issuer.Name
	}
	return msg, nil
}
