// Package paper defines the paper metadata domain model.
package paper

import (
	"fmt"
	"os"
	"time"
)

// Paper is one research paper record, keyed by its arXiv identifier.
type Paper struct {
	ArxivID         string    `json:"arxiv_id"`
	Version         int       `json:"version"`
	Title           string    `json:"title"`
	Authors         []string  `json:"authors"`
	Abstract        string    `json:"abstract"`
	PrimaryCategory string    `json:"primary_category"`
	Categories      []string  `json:"categories"`
	PublishedDate   time.Time `json:"published_date"`
	UpdatedDate     time.Time `json:"updated_date"`
	SourceURL       string    `json:"source_url"`
	DocumentURL     string    `json:"document_url"`
	LocalPDFPath    string    `json:"local_pdf_path,omitempty"`
	IsFavorite      bool      `json:"is_favorite"`
	IsVectorized    bool      `json:"is_vectorized"`

	// VectorHandle locates this paper's embedding in the vector index.
	// Nil until the paper has been vectorized.
	VectorHandle *int64 `json:"vector_handle,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IDWithVersion returns the versioned arXiv identifier, e.g. "2301.12345v2".
func (p *Paper) IDWithVersion() string {
	return fmt.Sprintf("%sv%d", p.ArxivID, p.Version)
}

// AbsURL returns the arXiv abstract page URL for this paper.
func (p *Paper) AbsURL() string {
	if p.SourceURL != "" {
		return p.SourceURL
	}
	return "https://arxiv.org/abs/" + p.IDWithVersion()
}

// PDFURL returns the arXiv PDF URL for this paper.
func (p *Paper) PDFURL() string {
	if p.DocumentURL != "" {
		return p.DocumentURL
	}
	return "https://arxiv.org/pdf/" + p.IDWithVersion() + ".pdf"
}

// HasLocalPDF reports whether a downloaded PDF exists on disk.
func (p *Paper) HasLocalPDF() bool {
	if p.LocalPDFPath == "" {
		return false
	}
	_, err := os.Stat(p.LocalPDFPath)
	return err == nil
}
