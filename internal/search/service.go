// Package search answers keyword and semantic queries against the metadata
// store and the vector index.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/embedding"
	"github.com/Micdiane/arxiv-helper/internal/index"
	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

// Errors surfaced to callers.
var (
	// ErrNotVectorized is returned by Similar when the source paper has
	// no embedding yet.
	ErrNotVectorized = errors.New("paper not vectorized")

	// ErrEmbeddingTimeout is returned when embedding a query exceeds the
	// configured time budget. Retryable by the caller.
	ErrEmbeddingTimeout = errors.New("embedding timed out")
)

// IndexSource yields the current read snapshot of the vector index.
type IndexSource interface {
	Live() index.Index
}

// TextSource supplies the text to embed for a paper.
type TextSource interface {
	Text(p *paper.Paper) (string, error)
}

// Result is one semantic search hit.
type Result struct {
	Paper paper.Paper `json:"paper"`
	Score float32     `json:"score"`
}

// Service answers queries against the store and the live index snapshot.
// Safe for concurrent use; it holds no mutable state of its own.
type Service struct {
	db       *store.DB
	provider embedding.Provider
	source   IndexSource
	texts    TextSource
	timeout  time.Duration
}

// New creates a search service. timeout bounds query embedding; zero means
// no bound.
func New(db *store.DB, provider embedding.Provider, source IndexSource, texts TextSource, timeout time.Duration) *Service {
	return &Service{
		db:       db,
		provider: provider,
		source:   source,
		texts:    texts,
		timeout:  timeout,
	}
}

// List returns a page of papers and the total count.
func (s *Service) List(skip, limit int, sortBy string) ([]paper.Paper, int, error) {
	return s.db.List(skip, limit, sortBy, false)
}

// Favorites returns a page of favorite papers and the total count.
func (s *Service) Favorites(skip, limit int) ([]paper.Paper, int, error) {
	return s.db.List(skip, limit, store.SortDate, true)
}

// Get returns one paper by id.
func (s *Service) Get(arxivID string) (*paper.Paper, error) {
	return s.db.GetByID(arxivID)
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (s *Service) ToggleFavorite(arxivID string) (bool, error) {
	return s.db.ToggleFavorite(arxivID)
}

// Keyword finds papers whose title or abstract contains the query as a
// case-insensitive substring. Sort "date" orders by published date
// descending; "relevance" ranks earlier and more frequent matches higher,
// ties broken by date descending. Pagination slices the full match set;
// total is the match count before slicing.
func (s *Service) Keyword(query string, skip, limit int, sortBy string) ([]paper.Paper, int, error) {
	matches, err := s.db.MatchKeyword(query)
	if err != nil {
		return nil, 0, err
	}

	if sortBy == store.SortRelevance {
		rankByRelevance(matches, query)
	}
	// MatchKeyword already returns date-descending order.

	total := len(matches)
	return slicePage(matches, skip, limit), total, nil
}

// Semantic embeds the query and returns the k nearest papers. Handles that
// resolve to no paper, or to a paper whose stored handle no longer matches,
// are dropped; duplicate papers keep their highest-scoring occurrence.
func (s *Service) Semantic(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	live := s.source.Live()
	if live == nil || live.Size() == 0 {
		return nil, nil
	}

	return s.resolve(live.Search(vec, k)), nil
}

// Similar returns up to k papers similar to the given one, excluding the
// paper itself. Fails with ErrNotVectorized when the source paper has no
// embedding.
func (s *Service) Similar(ctx context.Context, arxivID string, k int) ([]Result, error) {
	p, err := s.db.GetByID(arxivID)
	if err != nil {
		return nil, err
	}
	if !p.IsVectorized {
		return nil, fmt.Errorf("%w: %s", ErrNotVectorized, arxivID)
	}

	text, err := s.texts.Text(p)
	if err != nil {
		return nil, fmt.Errorf("extracting text for %s: %w", arxivID, err)
	}

	vec, err := s.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	live := s.source.Live()
	if live == nil || live.Size() == 0 {
		return nil, nil
	}

	// Query one extra neighbor: the source paper itself ranks first.
	results := s.resolve(live.Search(vec, k+1))
	filtered := results[:0]
	for _, r := range results {
		if r.Paper.ArxivID == arxivID {
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered, nil
}

// embedQuery embeds text under the configured time budget.
func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingTimeout, err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

// resolve maps raw index hits to papers, dropping stale handles and
// deduplicating by paper id. Hits arrive in descending score order, so the
// first occurrence of an id is its highest-scoring one.
func (s *Service) resolve(hits []index.Result) []Result {
	results := make([]Result, 0, len(hits))
	seen := make(map[string]bool, len(hits))

	for _, h := range hits {
		p, err := s.db.GetByHandle(h.Handle)
		if err != nil {
			continue // dangling handle from an interrupted sync or a rebuild
		}
		if p.VectorHandle == nil || *p.VectorHandle != h.Handle {
			continue
		}
		if seen[p.ArxivID] {
			continue
		}
		seen[p.ArxivID] = true
		results = append(results, Result{Paper: *p, Score: h.Score})
	}
	return results
}

// rankByRelevance orders matches by a match-position and frequency
// heuristic: more occurrences score higher, title matches count three
// abstract matches, earlier first matches win among equal scores, and
// remaining ties fall back to published date descending.
func rankByRelevance(papers []paper.Paper, query string) {
	q := strings.ToLower(query)

	type ranked struct {
		paper    paper.Paper
		score    int
		position int
	}
	items := make([]ranked, len(papers))
	for i := range papers {
		title := strings.ToLower(papers[i].Title)
		abstract := strings.ToLower(papers[i].Abstract)

		score := 3*strings.Count(title, q) + strings.Count(abstract, q)

		position := len(title) + len(abstract)
		if idx := strings.Index(title, q); idx >= 0 {
			position = idx
		} else if idx := strings.Index(abstract, q); idx >= 0 {
			position = len(title) + idx
		}
		items[i] = ranked{paper: papers[i], score: score, position: position}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.position != b.position {
			return a.position < b.position
		}
		return a.paper.PublishedDate.After(b.paper.PublishedDate)
	})

	for i := range items {
		papers[i] = items[i].paper
	}
}

// slicePage returns papers[skip : skip+limit], clamped to valid bounds.
func slicePage(papers []paper.Paper, skip, limit int) []paper.Paper {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(papers) {
		return nil
	}
	end := len(papers)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return papers[skip:end]
}
