package port

import "context"

// TextExtractor turns a PDF document into plain text for the seller-invoice
// parser. Extraction quality is the extractor's concern; the parser only
// sees the concatenated page text.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}
