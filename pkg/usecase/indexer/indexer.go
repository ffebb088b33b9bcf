// Package indexer builds the embedding index from a message store.
package indexer

import (
	"github.com/m-mizutani/burrow/pkg/adapter"
)

// UseCase embeds every store row and persists the vectors as a new index
// artifact keyed by the store's corpus version.
type UseCase struct {
	gemini         adapter.Gemini
	embeddingModel string
	batchSize      int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithBatchSize bounds how many rows are embedded per request. Batch
// boundaries are a memory/throughput knob only; they never change the
// per-row vectors.
func WithBatchSize(n int) Option {
	return func(uc *UseCase) {
		uc.batchSize = n
	}
}

// WithEmbeddingModelName records the model name into the index meta
func WithEmbeddingModelName(name string) Option {
	return func(uc *UseCase) {
		uc.embeddingModel = name
	}
}

// New creates a new indexer UseCase instance
func New(gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		gemini:         gemini,
		embeddingModel: "gemini-embedding-001",
		batchSize:      64,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
