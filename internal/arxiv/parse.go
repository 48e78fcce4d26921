package arxiv

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/paper"
)

// atomFeed mirrors the subset of the arXiv Atom feed the fetcher consumes.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"` // e.g. http://arxiv.org/abs/2301.12345v2
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// ParseFeed parses an arXiv Atom feed into paper records.
func ParseFeed(data []byte) ([]paper.Paper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decoding atom feed: %w", err)
	}

	papers := make([]paper.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		id, version := ParseIDVersion(e.ID)
		if id == "" {
			continue
		}

		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			authors = append(authors, a.Name)
		}

		categories := make([]string, 0, len(e.Categories))
		for _, c := range e.Categories {
			categories = append(categories, c.Term)
		}

		p := paper.Paper{
			ArxivID:         id,
			Version:         version,
			Title:           cleanText(e.Title),
			Abstract:        cleanText(e.Summary),
			Authors:         authors,
			PrimaryCategory: e.PrimaryCategory.Term,
			Categories:      categories,
			PublishedDate:   parseDate(e.Published),
			UpdatedDate:     parseDate(e.Updated),
		}
		p.SourceURL = fmt.Sprintf("https://arxiv.org/abs/%sv%d", id, version)
		p.DocumentURL = fmt.Sprintf("https://arxiv.org/pdf/%sv%d.pdf", id, version)

		papers = append(papers, p)
	}
	return papers, nil
}

// ParseIDVersion splits an arXiv entry id URL into the bare identifier and
// its version number, defaulting to version 1.
func ParseIDVersion(idURL string) (string, int) {
	idPart := idURL
	if i := strings.LastIndex(idURL, "/"); i >= 0 {
		idPart = idURL[i+1:]
	}
	if idPart == "" {
		return "", 0
	}

	if i := strings.LastIndex(idPart, "v"); i > 0 {
		if version, err := strconv.Atoi(idPart[i+1:]); err == nil {
			return idPart[:i], version
		}
	}
	return idPart, 1
}

// cleanText collapses the newlines arXiv inserts into titles and abstracts.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseDate parses an Atom timestamp, falling back to the zero time.
func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
