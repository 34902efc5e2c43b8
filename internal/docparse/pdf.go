package docparse

import (
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFText extracts the plain text of a PDF payload, page by page. Used when a
// PDF document has to be rendered into the Markdown export.
func PDFText(contents []byte) (string, error) {
	doc, err := fitz.NewFromMemory(contents)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String()), nil
}
