// Package store provides the SQLite-backed metadata store for papers.
//
// One row per arXiv identifier. Rows are created by ingestion, mutated by
// sync (vectorization state) and by users (favorite flag), never deleted.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Micdiane/arxiv-helper/internal/paper"
)

// ErrNotFound is returned when no paper exists for the requested id.
var ErrNotFound = errors.New("paper not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectPaperFields is the standard field list for SELECT queries.
const selectPaperFields = `arxiv_id, version, title, authors_json, abstract,
	primary_category, categories_json, published_date, updated_date,
	source_url, document_url, local_pdf_path,
	is_favorite, is_vectorized, vector_handle, created_at, updated_at`

// Open opens or creates the papers database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			arxiv_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			title TEXT NOT NULL,
			authors_json TEXT NOT NULL,
			abstract TEXT NOT NULL,
			primary_category TEXT NOT NULL,
			categories_json TEXT,
			published_date TEXT NOT NULL,
			updated_date TEXT NOT NULL,
			source_url TEXT,
			document_url TEXT,
			local_pdf_path TEXT,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			is_vectorized INTEGER NOT NULL DEFAULT 0,
			vector_handle INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_pending
			ON papers(arxiv_id) WHERE is_vectorized = 0;
		CREATE INDEX IF NOT EXISTS idx_papers_published
			ON papers(published_date);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_papers_handle
			ON papers(vector_handle) WHERE vector_handle IS NOT NULL;
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertOutcome describes what Upsert did with a record.
type UpsertOutcome int

const (
	OutcomeUnchanged UpsertOutcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// Upsert inserts a paper or updates its mutable fields by arXiv id.
//
// Records are only updated when the incoming version is at least the stored
// one. When the abstract text changed, the vectorization state is cleared so
// the paper is re-embedded on the next sync; the favorite flag is never
// touched by ingestion.
func (d *DB) Upsert(p *paper.Paper) (UpsertOutcome, error) {
	now := time.Now().UTC()

	existing, err := d.GetByID(p.ArxivID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return OutcomeUnchanged, err
	}

	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("encoding authors: %w", err)
	}
	categoriesJSON, err := json.Marshal(p.Categories)
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("encoding categories: %w", err)
	}

	if existing == nil {
		_, err := d.db.Exec(`
			INSERT INTO papers (
				arxiv_id, version, title, authors_json, abstract,
				primary_category, categories_json, published_date, updated_date,
				source_url, document_url, local_pdf_path,
				is_favorite, is_vectorized, vector_handle, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, NULL, ?, ?)`,
			p.ArxivID, p.Version, p.Title, string(authorsJSON), p.Abstract,
			p.PrimaryCategory, string(categoriesJSON),
			p.PublishedDate.UTC().Format(time.RFC3339),
			p.UpdatedDate.UTC().Format(time.RFC3339),
			p.SourceURL, p.DocumentURL, p.LocalPDFPath,
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return OutcomeUnchanged, fmt.Errorf("inserting paper %s: %w", p.ArxivID, err)
		}
		return OutcomeCreated, nil
	}

	if p.Version < existing.Version {
		return OutcomeUnchanged, nil
	}

	// An edited abstract invalidates the stored embedding.
	textChanged := p.Abstract != existing.Abstract

	query := `
		UPDATE papers SET
			version = ?, title = ?, authors_json = ?, abstract = ?,
			primary_category = ?, categories_json = ?,
			published_date = ?, updated_date = ?,
			source_url = ?, document_url = ?, updated_at = ?`
	args := []any{
		p.Version, p.Title, string(authorsJSON), p.Abstract,
		p.PrimaryCategory, string(categoriesJSON),
		p.PublishedDate.UTC().Format(time.RFC3339),
		p.UpdatedDate.UTC().Format(time.RFC3339),
		p.SourceURL, p.DocumentURL, now.Format(time.RFC3339),
	}
	if textChanged {
		query += `, is_vectorized = 0, vector_handle = NULL`
	}
	query += ` WHERE arxiv_id = ?`
	args = append(args, p.ArxivID)

	if _, err := d.db.Exec(query, args...); err != nil {
		return OutcomeUnchanged, fmt.Errorf("updating paper %s: %w", p.ArxivID, err)
	}
	return OutcomeUpdated, nil
}

// GetByID returns the paper with the given arXiv id, or ErrNotFound.
func (d *DB) GetByID(arxivID string) (*paper.Paper, error) {
	row := d.db.QueryRow(
		`SELECT `+selectPaperFields+` FROM papers WHERE arxiv_id = ?`, arxivID)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, arxivID)
	}
	return p, err
}

// GetByHandle returns the paper whose vector handle matches, or ErrNotFound.
// Handles left dangling by an interrupted sync or a rebuild resolve to
// nothing here; callers drop them.
func (d *DB) GetByHandle(handle int64) (*paper.Paper, error) {
	row := d.db.QueryRow(
		`SELECT `+selectPaperFields+` FROM papers WHERE vector_handle = ?`, handle)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: handle %d", ErrNotFound, handle)
	}
	return p, err
}

// Pending returns up to limit papers that have not been vectorized, ordered
// by arXiv id, starting after afterID. The cursor lets a sync run walk the
// backlog without re-selecting papers it already skipped.
func (d *DB) Pending(afterID string, limit int) ([]paper.Paper, error) {
	rows, err := d.db.Query(
		`SELECT `+selectPaperFields+` FROM papers
		 WHERE is_vectorized = 0 AND arxiv_id > ? ORDER BY arxiv_id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// All returns every paper ordered by arXiv id.
func (d *DB) All() ([]paper.Paper, error) {
	rows, err := d.db.Query(
		`SELECT ` + selectPaperFields + ` FROM papers ORDER BY arxiv_id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// HandleAssignment pairs a paper id with its vector handle.
type HandleAssignment struct {
	ArxivID string
	Handle  int64
}

// MarkVectorized records (flag, handle) pairs for a committed batch in one
// transaction. Either every row commits or none does.
func (d *DB) MarkVectorized(assignments []HandleAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE papers SET is_vectorized = 1, vector_handle = ?, updated_at = ?
		WHERE arxiv_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range assignments {
		if _, err := stmt.Exec(a.Handle, now, a.ArxivID); err != nil {
			return fmt.Errorf("marking %s vectorized: %w", a.ArxivID, err)
		}
	}

	return tx.Commit()
}

// ClearVectorized resets the vectorization state for the given papers.
func (d *DB) ClearVectorized(arxivIDs []string) error {
	if len(arxivIDs) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE papers SET is_vectorized = 0, vector_handle = NULL, updated_at = ?
		WHERE arxiv_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range arxivIDs {
		if _, err := stmt.Exec(now, id); err != nil {
			return fmt.Errorf("clearing %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// List sorts recognized by List.
const (
	SortDate      = "date"
	SortRelevance = "relevance"
)

// List returns a page of papers and the total count before slicing.
// Sort "date" orders by published date descending; anything else falls back
// to insertion time descending.
func (d *DB) List(skip, limit int, sort string, favoriteOnly bool) ([]paper.Paper, int, error) {
	where := ""
	if favoriteOnly {
		where = " WHERE is_favorite = 1"
	}

	var total int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM papers` + where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting papers: %w", err)
	}

	order := " ORDER BY created_at DESC, arxiv_id DESC"
	if sort == SortDate {
		order = " ORDER BY published_date DESC, arxiv_id DESC"
	}

	rows, err := d.db.Query(
		`SELECT `+selectPaperFields+` FROM papers`+where+order+` LIMIT ? OFFSET ?`,
		limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// MatchKeyword returns every paper whose title or abstract contains the
// query as a case-insensitive substring. Ranking and pagination are the
// caller's concern.
func (d *DB) MatchKeyword(query string) ([]paper.Paper, error) {
	q := strings.ToLower(query)
	rows, err := d.db.Query(
		`SELECT `+selectPaperFields+` FROM papers
		 WHERE instr(lower(title), ?) > 0 OR instr(lower(abstract), ?) > 0
		 ORDER BY published_date DESC, arxiv_id DESC`, q, q)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (d *DB) ToggleFavorite(arxivID string) (bool, error) {
	res, err := d.db.Exec(`
		UPDATE papers SET is_favorite = 1 - is_favorite, updated_at = ?
		WHERE arxiv_id = ?`,
		time.Now().UTC().Format(time.RFC3339), arxivID)
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("%w: %s", ErrNotFound, arxivID)
	}

	var fav bool
	if err := d.db.QueryRow(
		`SELECT is_favorite FROM papers WHERE arxiv_id = ?`, arxivID).Scan(&fav); err != nil {
		return false, fmt.Errorf("reading favorite state: %w", err)
	}
	return fav, nil
}

// WithoutPDF returns papers that have no local PDF recorded.
func (d *DB) WithoutPDF() ([]paper.Paper, error) {
	rows, err := d.db.Query(
		`SELECT ` + selectPaperFields + ` FROM papers
		 WHERE local_pdf_path IS NULL OR local_pdf_path = ''
		 ORDER BY arxiv_id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers without PDF: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// SetLocalPDF records the path of a downloaded PDF.
func (d *DB) SetLocalPDF(arxivID, path string) error {
	res, err := d.db.Exec(`
		UPDATE papers SET local_pdf_path = ?, updated_at = ? WHERE arxiv_id = ?`,
		path, time.Now().UTC().Format(time.RFC3339), arxivID)
	if err != nil {
		return fmt.Errorf("setting pdf path: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, arxivID)
	}
	return nil
}

// Stats summarizes the store contents.
type Stats struct {
	Total      int `json:"total"`
	Vectorized int `json:"vectorized"`
	Favorites  int `json:"favorites"`
	WithPDF    int `json:"with_pdf"`
}

// Counts returns summary statistics for the store.
func (d *DB) Counts() (Stats, error) {
	var s Stats
	err := d.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(is_vectorized), 0),
			COALESCE(SUM(is_favorite), 0),
			COALESCE(SUM(CASE WHEN local_pdf_path IS NOT NULL AND local_pdf_path != '' THEN 1 ELSE 0 END), 0)
		FROM papers`).Scan(&s.Total, &s.Vectorized, &s.Favorites, &s.WithPDF)
	if err != nil {
		return Stats{}, fmt.Errorf("counting papers: %w", err)
	}
	return s, nil
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*paper.Paper, error) {
	var p paper.Paper
	var authorsJSON, categoriesJSON, published, updated, createdAt, updatedAt string
	var sourceURL, documentURL, pdfPath sql.NullString
	var handle sql.NullInt64

	err := row.Scan(
		&p.ArxivID, &p.Version, &p.Title, &authorsJSON, &p.Abstract,
		&p.PrimaryCategory, &categoriesJSON, &published, &updated,
		&sourceURL, &documentURL, &pdfPath,
		&p.IsFavorite, &p.IsVectorized, &handle, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors for %s: %w", p.ArxivID, err)
	}
	if categoriesJSON != "" {
		if err := json.Unmarshal([]byte(categoriesJSON), &p.Categories); err != nil {
			return nil, fmt.Errorf("decoding categories for %s: %w", p.ArxivID, err)
		}
	}

	p.SourceURL = sourceURL.String
	p.DocumentURL = documentURL.String
	p.LocalPDFPath = pdfPath.String
	if handle.Valid {
		h := handle.Int64
		p.VectorHandle = &h
	}

	p.PublishedDate, _ = time.Parse(time.RFC3339, published)
	p.UpdatedDate, _ = time.Parse(time.RFC3339, updated)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}
