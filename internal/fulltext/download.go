package fulltext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/store"
)

// downloadTimeout bounds a single PDF download.
const downloadTimeout = 2 * time.Minute

// DownloadMissing fetches the PDF for every paper without one, recording
// the local path in the store. Per-paper failures are counted and skipped;
// the download continues.
func DownloadMissing(ctx context.Context, db *store.DB, dir string) (downloaded, failed int, err error) {
	papers, err := db.WithoutPDF()
	if err != nil {
		return 0, 0, err
	}
	if len(papers) == 0 {
		return 0, 0, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, 0, fmt.Errorf("creating pdf directory: %w", err)
	}

	client := &http.Client{Timeout: downloadTimeout}
	for i := range papers {
		select {
		case <-ctx.Done():
			return downloaded, failed, ctx.Err()
		default:
		}

		p := &papers[i]
		path := filepath.Join(dir, sanitizeID(p.ArxivID)+".pdf")

		if err := downloadFile(ctx, client, p.PDFURL(), path); err != nil {
			failed++
			continue
		}
		if err := db.SetLocalPDF(p.ArxivID, path); err != nil {
			failed++
			continue
		}
		downloaded++
	}

	return downloaded, failed, nil
}

func downloadFile(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	// Write to a temp file and rename, so a failed download never leaves
	// a truncated PDF behind.
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}

// sanitizeID makes an arXiv id safe as a file name (old-style ids contain a
// slash, e.g. "math/0211159").
func sanitizeID(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}
