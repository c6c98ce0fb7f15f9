package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/haasonsaas/docqa/pkg/models"
)

// extractPDF extracts text page by page so retrieval can cite page numbers.
// Pages with no extractable text are skipped.
func extractPDF(data []byte, filename string) ([]models.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	totalPages := reader.NumPage()
	docs := make([]models.Document, 0, totalPages)

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, models.Document{
			Text: text,
			Metadata: models.DocumentMetadata{
				Document:   filename,
				Page:       pageNum,
				TotalPages: totalPages,
				SourceType: models.SourceTypePDF,
			},
		})
	}

	return docs, nil
}
