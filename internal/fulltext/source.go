// Package fulltext supplies the text used to embed a paper: either its
// abstract or, when enabled, the plain text extracted from a downloaded PDF.
package fulltext

import (
	"errors"
	"fmt"

	"github.com/Micdiane/arxiv-helper/internal/paper"
)

// ErrNoText indicates a paper has neither usable full text nor an abstract.
var ErrNoText = errors.New("paper has no text content")

const (
	// MinTextLength is the minimum text length (in characters) worth
	// embedding; shorter texts lack semantic content.
	MinTextLength = 20

	// MaxTextLength caps the text handed to the embedding model; longer
	// texts are truncated to stay within typical context windows.
	MaxTextLength = 8000
)

// Source selects embedding text for papers.
type Source struct {
	// UseFullText prefers extracted PDF text over the abstract. The
	// metadata abstract is unaffected either way.
	UseFullText bool
}

// Text returns the text to embed for a paper. With UseFullText set and a
// local PDF present, the extracted document text is used, falling back to
// the abstract on extraction failure. Fails with ErrNoText when nothing
// usable exists.
func (s *Source) Text(p *paper.Paper) (string, error) {
	if s.UseFullText && p.HasLocalPDF() {
		text, err := Extract(p.LocalPDFPath)
		if err == nil && len(text) >= MinTextLength {
			return truncate(text), nil
		}
	}

	if len(p.Abstract) >= MinTextLength {
		return truncate(p.Abstract), nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoText, p.ArxivID)
}

func truncate(s string) string {
	if len(s) > MaxTextLength {
		return s[:MaxTextLength]
	}
	return s
}
