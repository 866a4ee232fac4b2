package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract extracts text through the tesseract OCR engine.
type Tesseract struct{}

// NewTesseract returns the OCR baseline extractor.
func NewTesseract() *Tesseract {
	return &Tesseract{}
}

// Text runs OCR over the image at path. A gosseract client is not safe
// for concurrent use, so each call gets its own.
func (t *Tesseract) Text(_ context.Context, path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("load image for ocr: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr text extraction: %w", err)
	}
	return text, nil
}
