package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/haasonsaas/docqa/pkg/models"
)

// extractDOCX reads paragraph text out of word/document.xml. DOCX has no
// fixed pagination, so the whole file becomes a single page-1 document.
func extractDOCX(data []byte, filename string) ([]models.Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a valid docx archive: %w", filename, err)
	}

	text, err := docxDocumentText(reader)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	return []models.Document{{
		Text: text,
		Metadata: models.DocumentMetadata{
			Document:   filename,
			Page:       1,
			TotalPages: 1,
			SourceType: models.SourceTypeDOCX,
		},
	}}, nil
}

func docxDocumentText(reader *zip.Reader) (string, error) {
	file, err := reader.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("missing word/document.xml: %w", err)
	}
	defer file.Close()

	decoder := xml.NewDecoder(file)

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(current.String()); line != "" {
					paragraphs = append(paragraphs, line)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(element)
			}
		}
	}

	if line := strings.TrimSpace(current.String()); line != "" {
		paragraphs = append(paragraphs, line)
	}

	return strings.Join(paragraphs, "\n"), nil
}
