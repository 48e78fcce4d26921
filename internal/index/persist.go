package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// FormatVersion is the snapshot format version for compatibility checking.
// Increment when making breaking changes to the snapshot layout.
const FormatVersion = 1

// snapshot is the persisted form of an index: one versioned blob containing
// the dimension, the variant tag, the training state for the clustered
// variant, and all handle/vector entries.
type snapshot struct {
	FormatVersion int
	Variant       string
	Dimensions    int
	NextHandle    int64
	Entries       []Entry

	// Clustered variant only.
	ClusterCount int
	Probes       int
	Trained      bool
	Centroids    [][]float32
}

// Save persists the full index state to path using GOB encoding. The
// snapshot is written to a temporary file and renamed into place, so
// concurrent readers of the file never observe a partial write.
func Save(idx Index, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx.snapshot()); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load restores an index from a snapshot file.
//
// Returns ErrNotFound if no snapshot exists and ErrCorrupt on any format
// mismatch; callers respond to ErrCorrupt with a full rebuild rather than
// partial recovery.
func Load(path string) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %v", ErrCorrupt, err)
	}

	if snap.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrCorrupt, snap.FormatVersion, FormatVersion)
	}
	if snap.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d", ErrCorrupt, snap.Dimensions)
	}

	switch snap.Variant {
	case VariantExact:
		idx := NewFlat(snap.Dimensions)
		if err := idx.AddBatch(snap.Entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if snap.NextHandle > idx.next {
			idx.next = snap.NextHandle
		}
		return idx, nil

	case VariantClustered:
		idx := NewIVF(snap.Dimensions, snap.ClusterCount, snap.Probes)
		if snap.Trained {
			idx.trained = true
			idx.centroids = snap.Centroids
			idx.lists = make([][]int, len(snap.Centroids))
			if err := idx.AddBatch(snap.Entries); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		} else if len(snap.Entries) > 0 {
			return nil, fmt.Errorf("%w: entries present in untrained clustered index", ErrCorrupt)
		}
		if snap.NextHandle > idx.next {
			idx.next = snap.NextHandle
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrCorrupt, snap.Variant)
	}
}
