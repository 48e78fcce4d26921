// Package embedding provides vector embedding generation for text.
package embedding

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the embedding backend or its model cannot be
// reached. Checked at process start; never retried per request.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Provider generates embeddings from text. Implementations are selected at
// configuration time and constructed once per process.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for the given texts, preserving
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}
