package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Micdiane/arxiv-helper/internal/embedding"
	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/search"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

// Title truncation lengths by context.
const (
	ListTitleMaxLen   = 60 // Used in list command output
	SearchTitleMaxLen = 70 // Used in search result summaries
)

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps known error conditions to exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, search.ErrNotVectorized):
		return ExitNoVector
	case errors.Is(err, embedding.ErrModelUnavailable):
		return ExitModelUnavailable
	default:
		return ExitError
	}
}

// printPapersHuman prints a numbered paper listing.
func printPapersHuman(papers []paper.Paper) {
	for i, p := range papers {
		marker := " "
		if p.IsFavorite {
			marker = "*"
		}
		fmt.Printf("%d.%s %s\n", i+1, marker, p.ArxivID)
		fmt.Printf("   %s\n", truncateString(p.Title, ListTitleMaxLen))
		fmt.Printf("   %s (%s)\n\n", formatAuthorsShort(p.Authors, 3), p.PublishedDate.Format("2006-01-02"))
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatAuthorsShort formats authors with "et al." for more than maxCount.
func formatAuthorsShort(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) > maxCount {
		return strings.Join(authors[:maxCount], ", ") + ", et al."
	}
	return strings.Join(authors, ", ")
}
