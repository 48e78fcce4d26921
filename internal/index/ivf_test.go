package index

import (
	"errors"
	"math"
	"testing"
)

// clusteredSamples returns vectors grouped around a few well-separated
// directions, enough to give k-means something to find.
func clusteredSamples(perCluster int) [][]float32 {
	centers := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	var samples [][]float32
	for _, c := range centers {
		for i := 0; i < perCluster; i++ {
			v := make([]float32, len(c))
			copy(v, c)
			// Small deterministic jitter so members differ.
			v[(i+1)%len(c)] += 0.01 * float32(i+1)
			samples = append(samples, v)
		}
	}
	return samples
}

func TestIVFRequiresTraining(t *testing.T) {
	idx := NewIVF(4, 2, 1)

	if err := idx.Add(1, []float32{1, 0, 0, 0}); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Add before Train: got %v, want ErrNotTrained", err)
	}
	if got := idx.Search([]float32{1, 0, 0, 0}, 1); got != nil {
		t.Errorf("Search before Train: got %v, want nil", got)
	}
	if idx.Trained() {
		t.Error("Trained() = true before training")
	}
}

func TestIVFTrainAndSearch(t *testing.T) {
	samples := clusteredSamples(5)
	idx := NewIVF(4, 4, 2)

	if err := idx.Train(samples); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !idx.Trained() {
		t.Fatal("Trained() = false after training")
	}

	for i, s := range samples {
		if err := idx.Add(int64(i+1), s); err != nil {
			t.Fatalf("Add(%d): %v", i+1, err)
		}
	}

	// Query near the first center; the top hit must come from it.
	results := idx.Search([]float32{1, 0.01, 0, 0}, 3)
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Handle < 1 || results[0].Handle > 5 {
		t.Errorf("top result handle = %d, want one of cluster 1 (handles 1..5)", results[0].Handle)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending score order: %v", results)
		}
	}
}

func TestIVFTrainCapsClusterCount(t *testing.T) {
	idx := NewIVF(2, 50, 4)

	// Fewer samples than configured clusters.
	samples := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	if err := idx.Train(samples); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(idx.centroids) != len(samples) {
		t.Errorf("centroid count = %d, want %d (capped at sample size)", len(idx.centroids), len(samples))
	}
}

func TestIVFTrainValidation(t *testing.T) {
	idx := NewIVF(3, 2, 1)

	if err := idx.Train(nil); err == nil {
		t.Error("Train with no samples: want error")
	}
	if err := idx.Train([][]float32{{1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Train wrong dims: got %v, want ErrDimensionMismatch", err)
	}
}

func TestIVFRetrainReassignsEntries(t *testing.T) {
	samples := clusteredSamples(3)
	idx := NewIVF(4, 4, 4)
	if err := idx.Train(samples); err != nil {
		t.Fatalf("Train: %v", err)
	}
	for i, s := range samples {
		if err := idx.Add(int64(i+1), s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	before := idx.Search([]float32{0, 1, 0.01, 0}, 2)

	// Retrain with the same sample; entries must survive and stay findable.
	if err := idx.Train(samples); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if idx.Size() != len(samples) {
		t.Fatalf("size after retrain = %d, want %d", idx.Size(), len(samples))
	}

	after := idx.Search([]float32{0, 1, 0.01, 0}, 2)
	if len(after) != len(before) {
		t.Fatalf("result count changed after retrain: %d != %d", len(after), len(before))
	}
	if after[0].Handle != before[0].Handle {
		t.Errorf("top hit changed after identical retrain: %d != %d", after[0].Handle, before[0].Handle)
	}
}

func TestIVFFullProbeMatchesFlat(t *testing.T) {
	// Probing every cluster makes the clustered variant exhaustive, so it
	// must agree with the exact variant on the same data.
	samples := clusteredSamples(4)

	flat := NewFlat(4)
	ivf := NewIVF(4, 4, 4)
	if err := ivf.Train(samples); err != nil {
		t.Fatalf("Train: %v", err)
	}
	for i, s := range samples {
		if err := flat.Add(int64(i+1), s); err != nil {
			t.Fatal(err)
		}
		if err := ivf.Add(int64(i+1), s); err != nil {
			t.Fatal(err)
		}
	}

	query := []float32{0.5, 0.5, 0.01, 0}
	exact := flat.Search(query, 5)
	approx := ivf.Search(query, 5)

	if len(exact) != len(approx) {
		t.Fatalf("result counts differ: flat %d, ivf %d", len(exact), len(approx))
	}
	for i := range exact {
		if exact[i].Handle != approx[i].Handle {
			t.Errorf("result %d: flat handle %d, ivf handle %d", i, exact[i].Handle, approx[i].Handle)
		}
		if diff := float64(exact[i].Score - approx[i].Score); math.Abs(diff) > 1e-6 {
			t.Errorf("result %d: scores differ by %v", i, diff)
		}
	}
}

func TestIVFCloneIsIndependent(t *testing.T) {
	samples := clusteredSamples(2)
	idx := NewIVF(4, 2, 2)
	if err := idx.Train(samples); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := idx.Add(1, samples[0]); err != nil {
		t.Fatal(err)
	}

	clone := idx.Clone()
	if err := idx.Add(2, samples[1]); err != nil {
		t.Fatal(err)
	}

	if clone.Size() != 1 {
		t.Errorf("clone size = %d, want 1", clone.Size())
	}
	if clone.Variant() != VariantClustered {
		t.Errorf("clone variant = %q, want %q", clone.Variant(), VariantClustered)
	}
}
