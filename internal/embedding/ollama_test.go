package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeOllama serves the two API endpoints the provider uses.
func fakeOllama(t *testing.T, dims int, models []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		resp := struct {
			Models []model `json:"models"`
		}{}
		for _, m := range models {
			resp.Models = append(resp.Models, model{Name: m})
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float32, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, dims)
			// Tag each vector with its input position so order is checkable.
			vec[0] = float32(i + 1)
			vec[1] = float32(len(text))
			embeddings[i] = vec
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	srv := fakeOllama(t, 4, []string{DefaultModel})
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(4))

	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d came from input position %v", i, v[0])
		}
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	p := NewOllamaProvider(WithBaseURL("http://unreachable.invalid"))
	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil without any request", vecs)
	}
}

func TestEmbedDimensionValidation(t *testing.T) {
	srv := fakeOllama(t, 4, []string{DefaultModel})
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(8))

	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Error("want error when server returns wrong dimensions")
	}
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model failed to load", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Error("want error on server failure")
	}
}

func TestAvailable(t *testing.T) {
	srv := fakeOllama(t, 4, []string{"other-model", DefaultModel})
	p := NewOllamaProvider(WithBaseURL(srv.URL))

	if err := p.Available(context.Background()); err != nil {
		t.Errorf("Available: %v", err)
	}
}

func TestAvailableModelMissing(t *testing.T) {
	srv := fakeOllama(t, 4, []string{"other-model"})
	p := NewOllamaProvider(WithBaseURL(srv.URL))

	err := p.Available(context.Background())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}

func TestAvailableServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	err := p.Available(context.Background())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}
