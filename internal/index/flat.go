package index

import "fmt"

// Flat is the exact index variant: a linear collection queried by
// exhaustive similarity scan. Always correct; the reference implementation.
type Flat struct {
	dims    int
	entries []Entry
	next    int64
}

// NewFlat creates an empty exact index for vectors of the given dimension.
func NewFlat(dims int) *Flat {
	return &Flat{dims: dims, next: 1}
}

// Add appends one entry.
func (f *Flat) Add(handle int64, vector []float32) error {
	if len(vector) != f.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), f.dims)
	}
	f.entries = append(f.entries, Entry{Handle: handle, Vector: vector})
	if handle >= f.next {
		f.next = handle + 1
	}
	return nil
}

// AddBatch appends entries in order.
func (f *Flat) AddBatch(entries []Entry) error {
	for _, e := range entries {
		if err := f.Add(e.Handle, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Search scans every entry and returns the k most similar.
func (f *Flat) Search(query []float32, k int) []Result {
	if len(query) != f.dims || k <= 0 || len(f.entries) == 0 {
		return nil
	}

	candidates := make([]scored, len(f.entries))
	for i, e := range f.entries {
		candidates[i] = scored{pos: i, score: CosineSimilarity(query, e.Vector)}
	}

	ranked := rank(candidates, k)
	results := make([]Result, len(ranked))
	for i, c := range ranked {
		results[i] = Result{Handle: f.entries[c.pos].Handle, Score: c.score}
	}
	return results
}

// Size returns the current entry count.
func (f *Flat) Size() int { return len(f.entries) }

// Dimensions returns the vector dimension.
func (f *Flat) Dimensions() int { return f.dims }

// Variant returns the structural variant tag.
func (f *Flat) Variant() string { return VariantExact }

// NextHandle returns the next free handle.
func (f *Flat) NextHandle() int64 { return f.next }

// Clone returns an independent copy. Vector storage is shared; vectors are
// never mutated after Add.
func (f *Flat) Clone() Index {
	c := &Flat{dims: f.dims, next: f.next}
	c.entries = make([]Entry, len(f.entries))
	copy(c.entries, f.entries)
	return c
}

func (f *Flat) snapshot() *snapshot {
	return &snapshot{
		FormatVersion: FormatVersion,
		Variant:       VariantExact,
		Dimensions:    f.dims,
		NextHandle:    f.next,
		Entries:       f.entries,
	}
}
