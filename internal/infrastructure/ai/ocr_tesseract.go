//go:build tesseract

package ai

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs Tesseract through gosseract. A client is created
// per call because gosseract clients are not safe for concurrent use.
type TesseractRecognizer struct {
	languages []string
}

// NewTextRecognizer returns a Tesseract recognizer for languages (e.g. spa, eng)
func NewTextRecognizer(languages []string) (TextRecognizer, error) {
	return &TesseractRecognizer{languages: languages}, nil
}

// Recognize implements TextRecognizer
func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if len(r.languages) > 0 {
		if err := client.SetLanguage(r.languages...); err != nil {
			return "", err
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
