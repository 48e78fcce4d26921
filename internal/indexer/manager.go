// Package indexer synchronizes the metadata store with the vector index.
//
// A sync run drains unvectorized papers in batches: select pending, embed,
// append to a private working index, persist the snapshot, then commit the
// (flag, handle) pairs. Persisting strictly before committing is the
// correctness contract: a crash between the two leaves flags unset, and the
// next run re-embeds the same papers instead of losing them.
//
// Readers never see the working index. After each successful persist the
// manager publishes an immutable clone through an atomic pointer; searches
// keep hitting the previous snapshot until the swap.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/config"
	"github.com/Micdiane/arxiv-helper/internal/embedding"
	"github.com/Micdiane/arxiv-helper/internal/index"
	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

// ErrRebuildRequired indicates the persisted snapshot cannot be used
// (corrupt, or its dimension/variant no longer matches the configuration)
// and a full rebuild is needed.
var ErrRebuildRequired = errors.New("index rebuild required")

// DefaultTrainSample is the maximum number of vectors used to train the
// clustered variant's quantizer.
const DefaultTrainSample = 100

// TextSource supplies the text to embed for a paper.
type TextSource interface {
	Text(p *paper.Paper) (string, error)
}

// ProgressReporter receives progress updates during sync and rebuild.
type ProgressReporter interface {
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) { f(current, total) }

// Options configures a Manager.
type Options struct {
	IndexPath     string
	Variant       string // config.VariantExact or config.VariantClustered
	Dimensions    int
	ClusterCount  int
	ClusterProbes int
	BatchSize     int
	MaxBatches    int // batches per Sync invocation, 0 = drain the backlog
	TrainSample   int
}

// Stats summarizes one sync or rebuild run.
type Stats struct {
	Embedded  int           `json:"embedded"`
	Skipped   int           `json:"skipped"`
	Batches   int           `json:"batches"`
	IndexSize int           `json:"index_size"`
	Duration  time.Duration `json:"duration"`
}

// liveSnapshot wraps the index exposed to readers.
type liveSnapshot struct {
	idx index.Index
}

// Manager orchestrates incremental synchronization between the metadata
// store and the vector index. At most one sync or rebuild runs at a time;
// reads proceed concurrently against the last published snapshot.
type Manager struct {
	db       *store.DB
	provider embedding.Provider
	texts    TextSource
	opts     Options

	mu       sync.Mutex // serializes Sync and Rebuild
	working  index.Index
	live     atomic.Pointer[liveSnapshot]
	progress ProgressReporter
}

// New creates a Manager, restoring the persisted snapshot when one exists.
//
// When the snapshot is corrupt or no longer matches the configured
// dimension or variant, the manager starts from an empty index and New
// returns an error wrapping ErrRebuildRequired; the manager is still usable
// and Rebuild resolves the condition.
func New(db *store.DB, provider embedding.Provider, texts TextSource, opts Options) (*Manager, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.TrainSample <= 0 {
		opts.TrainSample = DefaultTrainSample
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = provider.Dimensions()
	}

	m := &Manager{
		db:       db,
		provider: provider,
		texts:    texts,
		opts:     opts,
	}

	var loadErr error
	idx, err := index.Load(opts.IndexPath)
	switch {
	case err == nil:
		if idx.Dimensions() != opts.Dimensions || idx.Variant() != variantTag(opts.Variant) {
			loadErr = fmt.Errorf("%w: snapshot is %s/%dd, config wants %s/%dd",
				ErrRebuildRequired, idx.Variant(), idx.Dimensions(),
				variantTag(opts.Variant), opts.Dimensions)
			idx = m.newEmpty()
		}
	case errors.Is(err, index.ErrNotFound):
		idx = m.newEmpty()
	case errors.Is(err, index.ErrCorrupt):
		loadErr = fmt.Errorf("%w: %v", ErrRebuildRequired, err)
		idx = m.newEmpty()
	default:
		return nil, err
	}

	m.working = idx
	m.publish()
	return m, loadErr
}

// SetProgressReporter sets the progress reporter for sync and rebuild runs.
func (m *Manager) SetProgressReporter(r ProgressReporter) {
	m.progress = r
}

// Live returns the last persisted index snapshot. Safe for concurrent use;
// the returned index is never mutated.
func (m *Manager) Live() index.Index {
	return m.live.Load().idx
}

func (m *Manager) publish() {
	m.live.Store(&liveSnapshot{idx: m.working.Clone()})
}

func (m *Manager) newEmpty() index.Index {
	if m.opts.Variant == config.VariantClustered {
		return index.NewIVF(m.opts.Dimensions, m.opts.ClusterCount, m.opts.ClusterProbes)
	}
	return index.NewFlat(m.opts.Dimensions)
}

func variantTag(v string) string {
	if v == config.VariantClustered {
		return index.VariantClustered
	}
	return index.VariantExact
}

// Sync drains unvectorized papers into the index, up to MaxBatches batches.
// Papers whose text cannot be extracted are skipped and retried on the next
// run. Returns the stats collected so far alongside any error.
func (m *Manager) Sync(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	stats := &Stats{}
	cursor := ""

	for {
		if m.opts.MaxBatches > 0 && stats.Batches >= m.opts.MaxBatches {
			break
		}
		select {
		case <-ctx.Done():
			return m.finish(stats, start), ctx.Err()
		default:
		}

		selected, next, err := m.syncBatch(ctx, cursor, stats)
		if err != nil {
			return m.finish(stats, start), err
		}
		if selected == 0 {
			break
		}
		cursor = next
		stats.Batches++
	}

	return m.finish(stats, start), nil
}

func (m *Manager) finish(stats *Stats, start time.Time) *Stats {
	stats.IndexSize = m.working.Size()
	stats.Duration = time.Since(start)
	return stats
}

// syncBatch runs one SELECT_PENDING -> EMBED_BATCH -> APPEND_INDEX ->
// PERSIST_INDEX -> COMMIT_FLAGS cycle. Returns the number of papers
// selected (zero means the backlog is drained) and the advanced cursor.
func (m *Manager) syncBatch(ctx context.Context, cursor string, stats *Stats) (int, string, error) {
	// SELECT_PENDING
	pending, err := m.db.Pending(cursor, m.opts.BatchSize)
	if err != nil {
		return 0, cursor, fmt.Errorf("selecting pending papers: %w", err)
	}
	if len(pending) == 0 {
		return 0, cursor, nil
	}
	cursor = pending[len(pending)-1].ArxivID

	// EMBED_BATCH: per-item extraction failures are isolated; the paper
	// stays unvectorized and is retried on the next run.
	var batch []paper.Paper
	var texts []string
	for i := range pending {
		text, err := m.texts.Text(&pending[i])
		if err != nil || text == "" {
			stats.Skipped++
			continue
		}
		batch = append(batch, pending[i])
		texts = append(texts, text)
	}
	if len(batch) == 0 {
		return len(pending), cursor, nil
	}

	vectors, err := m.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, cursor, fmt.Errorf("embedding batch: %w", err)
	}

	if err := m.trainIfNeeded(vectors); err != nil {
		return 0, cursor, err
	}

	// APPEND_INDEX: assign fresh handles.
	assignments, err := m.appendVectors(batch, vectors)
	if err != nil {
		return 0, cursor, err
	}

	// PERSIST_INDEX must succeed before any flag commits; on failure the
	// working copy is rolled back so memory matches the durable snapshot.
	if err := m.persistWorking(); err != nil {
		return 0, cursor, err
	}

	// COMMIT_FLAGS
	if err := m.db.MarkVectorized(assignments); err != nil {
		return 0, cursor, fmt.Errorf("committing vectorized flags: %w", err)
	}

	stats.Embedded += len(batch)
	if m.progress != nil {
		m.progress.OnProgress(stats.Embedded+stats.Skipped, stats.Embedded+stats.Skipped)
	}
	return len(pending), cursor, nil
}

// trainIfNeeded trains the clustered quantizer on the first embedded batch.
func (m *Manager) trainIfNeeded(vectors [][]float32) error {
	ivf, ok := m.working.(*index.IVF)
	if !ok || ivf.Trained() || len(vectors) == 0 {
		return nil
	}
	sample := vectors
	if len(sample) > m.opts.TrainSample {
		sample = sample[:m.opts.TrainSample]
	}
	if err := ivf.Train(sample); err != nil {
		return fmt.Errorf("training index: %w", err)
	}
	return nil
}

// appendVectors adds the batch to the working index under fresh handles.
func (m *Manager) appendVectors(batch []paper.Paper, vectors [][]float32) ([]store.HandleAssignment, error) {
	assignments := make([]store.HandleAssignment, 0, len(batch))
	for i := range batch {
		handle := m.working.NextHandle()
		if err := m.working.Add(handle, vectors[i]); err != nil {
			return nil, fmt.Errorf("appending %s: %w", batch[i].ArxivID, err)
		}
		assignments = append(assignments, store.HandleAssignment{
			ArxivID: batch[i].ArxivID,
			Handle:  handle,
		})
	}
	return assignments, nil
}

// persistWorking saves the working index and publishes it to readers. On
// save failure the in-memory working copy is discarded in favor of the last
// published snapshot, keeping memory and disk consistent.
func (m *Manager) persistWorking() error {
	if err := index.Save(m.working, m.opts.IndexPath); err != nil {
		m.working = m.Live().Clone()
		return fmt.Errorf("persisting index: %w", err)
	}
	m.publish()
	return nil
}

// Rebuild discards the index and recomputes embeddings for every paper
// regardless of its vectorized flag. The snapshot is replaced atomically, so
// concurrent readers keep the old index until the swap. Metadata flags are
// re-committed after the swap; papers whose text cannot be extracted are
// cleared to unvectorized.
func (m *Manager) Rebuild(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	stats := &Stats{}

	papers, err := m.db.All()
	if err != nil {
		return stats, fmt.Errorf("loading papers: %w", err)
	}

	fresh := m.newEmpty()
	var assignments []store.HandleAssignment
	var failed []string

	for offset := 0; offset < len(papers); offset += m.opts.BatchSize {
		select {
		case <-ctx.Done():
			return m.finish(stats, start), ctx.Err()
		default:
		}

		end := offset + m.opts.BatchSize
		if end > len(papers) {
			end = len(papers)
		}

		var batch []paper.Paper
		var texts []string
		for i := offset; i < end; i++ {
			text, err := m.texts.Text(&papers[i])
			if err != nil || text == "" {
				failed = append(failed, papers[i].ArxivID)
				stats.Skipped++
				continue
			}
			batch = append(batch, papers[i])
			texts = append(texts, text)
		}
		if len(batch) == 0 {
			continue
		}

		vectors, err := m.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return m.finish(stats, start), fmt.Errorf("embedding batch: %w", err)
		}

		if ivf, ok := fresh.(*index.IVF); ok && !ivf.Trained() {
			sample := vectors
			if len(sample) > m.opts.TrainSample {
				sample = sample[:m.opts.TrainSample]
			}
			if err := ivf.Train(sample); err != nil {
				return m.finish(stats, start), fmt.Errorf("training index: %w", err)
			}
		}

		for i := range batch {
			handle := fresh.NextHandle()
			if err := fresh.Add(handle, vectors[i]); err != nil {
				return m.finish(stats, start), fmt.Errorf("appending %s: %w", batch[i].ArxivID, err)
			}
			assignments = append(assignments, store.HandleAssignment{
				ArxivID: batch[i].ArxivID,
				Handle:  handle,
			})
		}

		stats.Embedded += len(batch)
		stats.Batches++
		if m.progress != nil {
			m.progress.OnProgress(end, len(papers))
		}
	}

	if err := index.Save(fresh, m.opts.IndexPath); err != nil {
		return m.finish(stats, start), fmt.Errorf("persisting index: %w", err)
	}

	m.working = fresh
	m.publish()

	if err := m.db.MarkVectorized(assignments); err != nil {
		return m.finish(stats, start), fmt.Errorf("committing vectorized flags: %w", err)
	}
	if err := m.db.ClearVectorized(failed); err != nil {
		return m.finish(stats, start), fmt.Errorf("clearing failed papers: %w", err)
	}

	return m.finish(stats, start), nil
}
