// Package docload extracts plain text from uploaded binary documents.
// Supported formats: PDF (per-page text, page order) and DOCX (paragraph
// text joined by newlines).
package docload

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for any extension other than pdf/docx.
// Callers skip the offending file and continue with the rest of the batch.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extract converts raw document bytes into plain text. The byte buffer is
// not retained.
func Extract(data []byte, extension string) (string, error) {
	switch normalizeExtension(extension) {
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}
}

func normalizeExtension(extension string) string {
	return strings.ToLower(strings.TrimPrefix(extension, "."))
}

// extractPDF concatenates per-page text in page order. A page whose text
// cannot be extracted contributes an empty string rather than failing the
// whole document.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// extractDOCX concatenates paragraph text in document order.
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if paragraph, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, paragraph.String())
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
