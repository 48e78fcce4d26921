package index

import (
	"fmt"
	"sort"
)

// IVF is the clustered index variant. Entries are partitioned into k-means
// clusters; queries probe only the nearest clusters, so recall is
// approximate and query cost sub-linear. Requires a one-time training pass
// before any additions are accepted.
type IVF struct {
	dims         int
	clusterCount int
	probes       int

	trained   bool
	centroids [][]float32

	entries []Entry
	// assign holds the cluster of each entry, parallel to entries.
	assign []int
	// lists holds entry positions per cluster, in insertion order.
	lists [][]int

	next int64
}

// DefaultProbes is the number of clusters probed per query when not configured.
const DefaultProbes = 4

// kmeansMaxIterations bounds Lloyd iterations during training.
const kmeansMaxIterations = 25

// NewIVF creates an empty clustered index. Train must be called before Add.
func NewIVF(dims, clusterCount, probes int) *IVF {
	if probes <= 0 {
		probes = DefaultProbes
	}
	return &IVF{
		dims:         dims,
		clusterCount: clusterCount,
		probes:       probes,
		next:         1,
	}
}

// Trained reports whether the quantizer has been trained.
func (v *IVF) Trained() bool { return v.trained }

// Train fits the cluster centroids to a representative sample. Retraining
// with a fresh sample replaces the centroids and re-assigns every stored
// entry. The effective cluster count is capped at the sample size.
func (v *IVF) Train(samples [][]float32) error {
	if len(samples) == 0 {
		return fmt.Errorf("training requires at least one sample vector")
	}
	for _, s := range samples {
		if len(s) != v.dims {
			return fmt.Errorf("%w: training sample has %d, want %d", ErrDimensionMismatch, len(s), v.dims)
		}
	}

	k := v.clusterCount
	if k > len(samples) {
		k = len(samples)
	}

	v.centroids = kmeans(samples, k, kmeansMaxIterations)
	v.trained = true

	// Re-assign existing entries to the new centroids.
	v.lists = make([][]int, len(v.centroids))
	v.assign = make([]int, len(v.entries))
	for i, e := range v.entries {
		c := v.nearestCentroid(e.Vector)
		v.assign[i] = c
		v.lists[c] = append(v.lists[c], i)
	}

	return nil
}

// Add appends one entry to its nearest cluster.
func (v *IVF) Add(handle int64, vector []float32) error {
	if !v.trained {
		return ErrNotTrained
	}
	if len(vector) != v.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), v.dims)
	}

	pos := len(v.entries)
	c := v.nearestCentroid(vector)
	v.entries = append(v.entries, Entry{Handle: handle, Vector: vector})
	v.assign = append(v.assign, c)
	v.lists[c] = append(v.lists[c], pos)
	if handle >= v.next {
		v.next = handle + 1
	}
	return nil
}

// AddBatch appends entries in order.
func (v *IVF) AddBatch(entries []Entry) error {
	for _, e := range entries {
		if err := v.Add(e.Handle, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Search probes the nearest clusters and ranks their members.
func (v *IVF) Search(query []float32, k int) []Result {
	if !v.trained || len(query) != v.dims || k <= 0 || len(v.entries) == 0 {
		return nil
	}

	// Rank centroids by similarity to the query.
	order := make([]scored, len(v.centroids))
	for i, c := range v.centroids {
		order[i] = scored{pos: i, score: CosineSimilarity(query, c)}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].pos < order[j].pos
	})

	probes := v.probes
	if probes > len(order) {
		probes = len(order)
	}

	var candidates []scored
	for _, c := range order[:probes] {
		for _, pos := range v.lists[c.pos] {
			candidates = append(candidates, scored{
				pos:   pos,
				score: CosineSimilarity(query, v.entries[pos].Vector),
			})
		}
	}

	ranked := rank(candidates, k)
	results := make([]Result, len(ranked))
	for i, c := range ranked {
		results[i] = Result{Handle: v.entries[c.pos].Handle, Score: c.score}
	}
	return results
}

// Size returns the current entry count.
func (v *IVF) Size() int { return len(v.entries) }

// Dimensions returns the vector dimension.
func (v *IVF) Dimensions() int { return v.dims }

// Variant returns the structural variant tag.
func (v *IVF) Variant() string { return VariantClustered }

// NextHandle returns the next free handle.
func (v *IVF) NextHandle() int64 { return v.next }

// Clone returns an independent copy. Vector storage is shared; vectors are
// never mutated after Add.
func (v *IVF) Clone() Index {
	c := &IVF{
		dims:         v.dims,
		clusterCount: v.clusterCount,
		probes:       v.probes,
		trained:      v.trained,
		next:         v.next,
	}
	c.centroids = make([][]float32, len(v.centroids))
	copy(c.centroids, v.centroids)
	c.entries = make([]Entry, len(v.entries))
	copy(c.entries, v.entries)
	c.assign = make([]int, len(v.assign))
	copy(c.assign, v.assign)
	c.lists = make([][]int, len(v.lists))
	for i, l := range v.lists {
		c.lists[i] = make([]int, len(l))
		copy(c.lists[i], l)
	}
	return c
}

func (v *IVF) snapshot() *snapshot {
	return &snapshot{
		FormatVersion: FormatVersion,
		Variant:       VariantClustered,
		Dimensions:    v.dims,
		NextHandle:    v.next,
		Entries:       v.entries,
		ClusterCount:  v.clusterCount,
		Probes:        v.probes,
		Trained:       v.trained,
		Centroids:     v.centroids,
	}
}

// nearestCentroid returns the centroid with the smallest squared Euclidean
// distance to the vector.
func (v *IVF) nearestCentroid(vec []float32) int {
	best, bestDist := 0, float32(0)
	for i, c := range v.centroids {
		d := squaredDistance(vec, c)
		if i == 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// kmeans runs Lloyd's algorithm. Initial centroids are evenly spaced
// samples, so training is deterministic for a fixed sample order.
func kmeans(samples [][]float32, k, maxIterations int) [][]float32 {
	dims := len(samples[0])

	centroids := make([][]float32, k)
	step := len(samples) / k
	for i := range centroids {
		centroids[i] = append([]float32(nil), samples[i*step]...)
	}

	assign := make([]int, len(samples))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, s := range samples {
			best, bestDist := 0, float32(0)
			for c, cent := range centroids {
				d := squaredDistance(s, cent)
				if c == 0 || d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best || iter == 0 {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, s := range samples {
			c := assign[i]
			counts[c]++
			for j, x := range s {
				sums[c][j] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // keep previous centroid for empty clusters
			}
			for j := range centroids[c] {
				centroids[c][j] = float32(sums[c][j] / float64(counts[c]))
			}
		}
	}

	return centroids
}
