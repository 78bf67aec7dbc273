// Package extract implements PDF text extraction for the seller-invoice
// parser on top of pdfcpu.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUExtractor extracts page content streams with pdfcpu and strips the
// operators down to the text runs.
type PDFCPUExtractor struct {
	conf *model.Configuration
}

// NewPDFCPUExtractor creates an extractor with relaxed validation, since
// marketplace invoices are frequently produced by sloppy generators.
func NewPDFCPUExtractor() *PDFCPUExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUExtractor{conf: conf}
}

// ExtractText returns the concatenated text of all pages.
func (e *PDFCPUExtractor) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.conf.Cmd = model.EXTRACTCONTENT
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), e.conf)
	if err != nil {
		return "", fmt.Errorf("extract.ExtractText: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, page)
		if err != nil {
			return "", fmt.Errorf("extract.ExtractText: %w", err)
		}
		if r == nil {
			continue
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("extract.ExtractText: reading page: %w", err)
		}
		sb.WriteString(decodeContent(raw))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// decodeContent pulls the string operands of Tj/TJ operators out of a page
// content stream. Escapes for parentheses and backslashes are honored;
// anything fancier (hex strings, CID fonts) falls through untouched, which
// is good enough for the regex-driven parser.
func decodeContent(content []byte) string {
	var sb strings.Builder
	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if !inString {
			if c == '(' {
				inString = true
			}
			continue
		}
		if escaped {
			switch c {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case ')':
			inString = false
			sb.WriteByte(' ')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
