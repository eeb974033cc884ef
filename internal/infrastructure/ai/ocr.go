package ai

import (
	"context"
	"errors"
)

// ErrOCRUnavailable is returned when the binary was built without Tesseract
var ErrOCRUnavailable = errors.New("ai: local OCR not available in this build")

// TextRecognizer reads plain text from an image
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}
