// Package index provides the vector index used for semantic search.
//
// Two variants exist: Flat scans every entry and is exact; IVF partitions
// entries into k-means clusters and probes only the nearest clusters,
// trading recall for query latency. Both append entries monotonically and
// persist to a single gob snapshot.
package index

import (
	"errors"
	"math"
	"sort"
)

// Errors returned by index operations.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrNotTrained        = errors.New("index not trained")
	ErrCorrupt           = errors.New("corrupt index file")
	ErrNotFound          = errors.New("index file not found")
)

// Variant tags stored in snapshots.
const (
	VariantExact     = "exact"
	VariantClustered = "clustered"
)

// Entry is one stored embedding, addressed by its handle.
type Entry struct {
	Handle int64
	Vector []float32
}

// Result is one search hit.
type Result struct {
	Handle int64   `json:"handle"`
	Score  float32 `json:"score"`
}

// Index holds embeddings and answers k-nearest-neighbor queries.
//
// Vectors are never mutated after Add, so Clone may share vector storage.
// Implementations are not safe for concurrent mutation; readers must use a
// snapshot that is no longer being written (see the indexer package).
type Index interface {
	// Add appends one entry. Fails with ErrDimensionMismatch on size
	// mismatch and, for the clustered variant, ErrNotTrained before
	// training.
	Add(handle int64, vector []float32) error

	// AddBatch appends entries in order; stops at the first error.
	AddBatch(entries []Entry) error

	// Search returns up to k entries ordered by descending cosine
	// similarity, ties broken by insertion order (earlier wins). k is
	// clamped to the entry count. A query of the wrong dimension returns
	// no results.
	Search(query []float32, k int) []Result

	// Size returns the current entry count.
	Size() int

	// Dimensions returns the vector dimension D.
	Dimensions() int

	// Variant returns the structural variant tag.
	Variant() string

	// NextHandle returns the smallest handle larger than any stored one.
	NextHandle() int64

	// Clone returns an independent copy safe to expose to readers.
	Clone() Index

	// snapshot captures the full state for persistence.
	snapshot() *snapshot
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// scored pairs an entry position with its similarity for ranking.
type scored struct {
	pos   int
	score float32
}

// rank sorts candidates by score descending, insertion position ascending,
// and truncates to k.
func rank(candidates []scored, k int) []scored {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pos < candidates[j].pos
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
