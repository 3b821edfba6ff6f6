// Package ocr turns stored receipt documents into parsed receipts,
// either through the hosted extraction service or by parsing plain text
// locally.
package ocr

import (
	"context"
	"errors"
	"math"

	"talous/internal/core"
	"talous/internal/filestore"
	"talous/internal/receipt"
)

var ErrExtraction = errors.New("text extraction failed")

// Extractor converts one stored document into a parsed receipt.
type Extractor interface {
	Extract(ctx context.Context, file filestore.File, data []byte) (core.ParsedReceipt, error)
}

// TextExtractor handles documents that are already plain text (PDF text
// layers exported as .txt, test fixtures). It is also the fallback the
// HTTP client uses when the service returns raw text without structure.
type TextExtractor struct {
	Parser receipt.Parser
}

var _ Extractor = TextExtractor{}

func (e TextExtractor) Extract(_ context.Context, _ filestore.File, data []byte) (core.ParsedReceipt, error) {
	if len(data) == 0 {
		return core.ParsedReceipt{Total: math.NaN()}, nil
	}
	return e.Parser.Parse(string(data)), nil
}
