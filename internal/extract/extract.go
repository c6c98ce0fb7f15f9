// Package extract converts uploaded files into plain-text documents.
//
// Paginated formats (pdf) produce one Document per non-empty page; flat
// formats (docx, txt) produce a single Document covering the whole file.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/haasonsaas/docqa/pkg/models"
)

// ErrUnsupportedFormat is returned for file extensions the extractor does
// not recognize.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extract dispatches on the filename extension and returns the extracted
// documents. The filename becomes the document display name.
func Extract(data []byte, filename string) ([]models.Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	switch ext {
	case "pdf":
		return extractPDF(data, filename)
	case "docx", "doc":
		return extractDOCX(data, filename)
	case "txt":
		return extractTXT(data, filename)
	default:
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
}

func extractTXT(data []byte, filename string) ([]models.Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("extract %s: file is not valid UTF-8", filename)
	}

	return []models.Document{{
		Text: string(data),
		Metadata: models.DocumentMetadata{
			Document:   filename,
			Page:       1,
			TotalPages: 1,
			SourceType: models.SourceTypeTXT,
		},
	}}, nil
}
