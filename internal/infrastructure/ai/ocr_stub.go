//go:build !tesseract

package ai

// NewTextRecognizer reports ErrOCRUnavailable; build with -tags tesseract to
// enable local OCR.
func NewTextRecognizer(_ []string) (TextRecognizer, error) {
	return nil, ErrOCRUnavailable
}
