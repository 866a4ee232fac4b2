// Package extract turns a receipt image into item candidates.
//
// The chain tries structured extraction first (a vision model reading
// the image directly) and falls back to OCR text plus the line item
// parser. The two paths fail differently on purpose: structured
// extraction degrades silently, OCR is the guaranteed baseline and its
// failure aborts the upload.
package extract

import (
	"context"
	"log/slog"

	"scontrini/internal/core"
	"scontrini/internal/parser"
)

// ItemExtractor reads items straight out of a receipt image.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, imagePath string) ([]core.Item, error)
}

// TextExtractor produces raw unstructured text from a receipt image.
type TextExtractor interface {
	Text(ctx context.Context, imagePath string) (string, error)
}

// Chain is the full extraction pipeline for one image.
type Chain struct {
	vision ItemExtractor // optional; nil when not configured
	ocr    TextExtractor
}

// NewChain builds a chain. vision may be nil.
func NewChain(vision ItemExtractor, ocr TextExtractor) *Chain {
	return &Chain{vision: vision, ocr: ocr}
}

// Extract returns the item candidates for the image at path.
//
// A vision failure or an empty vision result falls through to OCR. An
// OCR failure is returned as a capability error; there is no partial
// result.
func (c *Chain) Extract(ctx context.Context, path string) ([]core.Item, error) {
	if c.vision != nil {
		items, err := c.vision.ExtractItems(ctx, path)
		if err != nil {
			slog.WarnContext(ctx, "Structured extraction failed, falling back to OCR",
				"path", path, "error", err)
		} else if len(items) > 0 {
			slog.InfoContext(ctx, "Structured extraction complete",
				"path", path, "items", len(items))
			return items, nil
		}
	}

	text, err := c.ocr.Text(ctx, path)
	if err != nil {
		return nil, core.Failure("ocr", core.FailureFailed, err)
	}
	slog.InfoContext(ctx, "OCR extraction complete", "path", path, "text_length", len(text))

	return parser.Parse(text), nil
}
