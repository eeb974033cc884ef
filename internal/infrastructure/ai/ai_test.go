package ai

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	answer string
	err    error
	model  string
	system string
	parts  []*genai.Part
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, model, system string, parts []*genai.Part) (string, error) {
	f.model, f.system, f.parts = model, system, parts
	return f.answer, f.err
}

type fakeOCR struct{ text string }

func (f fakeOCR) Recognize(context.Context, []byte) (string, error) { return f.text, nil }

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"1.234,56 €": "1234.56",
		"$1,234.56":  "1234.56",
		"12,5":       "12.5",
		"1,234":      "1234",
		"1.234.567":  "1234567",
		"-3,50":      "-3.5",
		"21%":        "21",
		"":           "0",
		"n/a":        "0",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(want).Equal(ParseAmount(in)), "got %s", ParseAmount(in))
		})
	}
}

func TestParseExtraction(t *testing.T) {
	raw := "```json\n" + `{
		"supplier": {"name": " Papelería Sol ", "tax_id": "B12345678"},
		"invoice_number": "A-77",
		"date": "05/03/2026",
		"currency": "eur",
		"items": [
			{"description": "Folios A4", "quantity": 2, "unit_price": "4,50", "tax_percent": 21},
			{"description": "", "quantity": 1, "unit_price": 1}
		],
		"subtotal": 9,
		"tax_amount": 1.89,
		"total": "10,89 €",
		"confidence": 0.92
	}` + "\n```"

	doc, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, "Papelería Sol", doc.SupplierName)
	assert.Equal(t, "B12345678", doc.SupplierTaxID)
	assert.Equal(t, "A-77", doc.InvoiceNumber)
	assert.Equal(t, "EUR", doc.Currency)
	require.NotNil(t, doc.IssueDate)
	assert.Equal(t, "2026-03-05", doc.IssueDate.Format("2006-01-02"))
	require.Len(t, doc.Items, 1, "items without description are skipped")
	assert.True(t, decimal.RequireFromString("4.5").Equal(doc.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(21).Equal(doc.Items[0].TaxPercent))
	assert.True(t, decimal.RequireFromString("10.89").Equal(doc.Total))
	assert.InDelta(t, 0.92, doc.Confidence, 0.001)
}

func TestParseExtraction_TotalOnly(t *testing.T) {
	doc, err := ParseExtraction(`Here you go: {"supplier_name": "Bar Pepe", "subtotal": 10, "tax_amount": 1, "total": 11} thanks`)
	require.NoError(t, err)
	assert.Equal(t, "Bar Pepe", doc.SupplierName)
	require.Len(t, doc.Items, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(doc.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(10).Equal(doc.Items[0].TaxPercent))
}

func TestParseExtraction_Invalid(t *testing.T) {
	_, err := ParseExtraction("I could not read the document")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseAnalysis(t *testing.T) {
	a, err := ParseAnalysis(`{
		"summary": "Reunión de seguimiento",
		"participants": ["Ana", " ", "Luis"],
		"key_moments": [{"timestamp": "01:10", "description": "Acuerdo de precio"}],
		"dialogue": [
			{"speaker": "Ana", "text": "Hola", "start_seconds": 0},
			{"speaker": "Luis", "text": "Buenos días", "start_seconds": "01:23"}
		]
	}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Luis"}, a.Participants)
	require.Len(t, a.KeyMoments, 1)
	assert.Equal(t, "01:10", a.KeyMoments[0].Timestamp)
	require.Len(t, a.Dialogue, 2)
	assert.Equal(t, 83.0, a.Dialogue[1].StartSeconds)
	assert.Equal(t, "Ana: Hola\nLuis: Buenos días", a.Transcript, "transcript rebuilt from dialogue")

	_, err = ParseAnalysis(`{"summary": "nothing"}`)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNormalizeImage(t *testing.T) {
	out, err := NormalizeImage(pngImage(t, 4000, 1000), 2000)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 2000, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())

	out, err = NormalizeImage(pngImage(t, 300, 200), 2000)
	require.NoError(t, err)
	img, err = imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx(), "small images keep their size")

	_, err = NormalizeImage([]byte("not an image"), 2000)
	assert.Error(t, err)
}

func TestDocumentExtractor_Image(t *testing.T) {
	gen := &fakeGenerator{answer: `{"supplier": {"name": "Sol"}, "total": 12.1, "subtotal": 10, "tax_amount": 2.1}`}
	ex := newDocumentExtractor(gen, config.AIConfig{Model: "m-1", MaxImageSide: 500}, fakeOCR{text: "TOTAL 12,10"}, nil)

	doc, err := ex.Extract(context.Background(), pngImage(t, 1000, 800), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Sol", doc.SupplierName)
	assert.Equal(t, "m-1", gen.model)
	assert.Equal(t, extractionPrompt, gen.system)

	require.Len(t, gen.parts, 3)
	assert.Contains(t, gen.parts[1].Text, "TOTAL 12,10")
	require.NotNil(t, gen.parts[2].InlineData)
	assert.Equal(t, "image/jpeg", gen.parts[2].InlineData.MIMEType)

	img, err := imaging.Decode(bytes.NewReader(gen.parts[2].InlineData.Data))
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
}

func TestDocumentExtractor_PDFAndErrors(t *testing.T) {
	gen := &fakeGenerator{answer: `{"total": 5}`}
	ex := newDocumentExtractor(gen, config.AIConfig{}, nil, nil)

	_, err := ex.Extract(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	require.NoError(t, err)
	require.Len(t, gen.parts, 2)
	assert.Equal(t, "application/pdf", gen.parts[1].InlineData.MIMEType)

	_, err = ex.Extract(context.Background(), []byte("x"), "text/plain")
	assert.Error(t, err)

	gen.err = errors.New("quota exceeded")
	_, err = ex.Extract(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	assert.EqualError(t, err, "quota exceeded")

	disabled := NewDocumentExtractor(nil, config.AIConfig{}, nil, nil)
	_, err = disabled.Extract(context.Background(), []byte("%PDF"), "application/pdf")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestAudioTranscriber(t *testing.T) {
	gen := &fakeGenerator{answer: `{"transcript": "Hola", "summary": "Saludo"}`}
	tr := newAudioTranscriber(gen, config.AIConfig{AudioModel: "audio-1", MaxAudioBytes: 10}, nil)

	a, err := tr.Transcribe(context.Background(), []byte("ID3abc"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "Hola", a.Transcript)
	assert.Equal(t, "audio-1", gen.model)
	assert.Equal(t, "audio/mpeg", gen.parts[1].InlineData.MIMEType)

	_, err = tr.Transcribe(context.Background(), []byte("0123456789ABC"), "audio/mpeg")
	assert.Error(t, err, "over the size limit")

	_, err = tr.Transcribe(context.Background(), []byte("x"), "video/mp4")
	assert.Error(t, err)

	disabled := NewAudioTranscriber(nil, config.AIConfig{}, nil)
	_, err = disabled.Transcribe(context.Background(), []byte("x"), "audio/mpeg")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewTextRecognizerWithoutTesseract(t *testing.T) {
	r, err := NewTextRecognizer([]string{"spa"})
	if err != nil {
		assert.ErrorIs(t, err, ErrOCRUnavailable)
		assert.Nil(t, r)
	}
}
