package fulltext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxExtractPages bounds extraction; the opening pages carry the content
// that matters for similarity, and some PDFs run to hundreds of pages.
const maxExtractPages = 20

// Extract returns the plain text of a PDF file.
func Extract(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > maxExtractPages {
		pages = maxExtractPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages
		}
		b.WriteString(text)
		b.WriteString("\n")

		if b.Len() >= MaxTextLength {
			break
		}
	}

	return strings.TrimSpace(b.String()), nil
}
