// Package agent answers natural-language questions over the message corpus.
// It routes each query to a deterministic fact lookup or a vector similarity
// search, phrases an answer, and optionally proposes a follow-up action.
package agent

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// VectorIndex is the index surface the Context Seeker needs. *index.Index
// satisfies it; tests substitute a mock.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error)
	CorpusVersion() string
	Rows() int64
}

// UseCase is the retrieval context: every query-time dependency constructed
// up front, immutable afterwards and safe for concurrent queries.
type UseCase struct {
	repo   repository.Repository
	idx    VectorIndex
	gemini adapter.Gemini

	// Known user names in store report order; the message-count skill scans
	// these against the query text.
	users []string

	topK int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTopK sets how many neighbors the Context Seeker retrieves
func WithTopK(k int) Option {
	return func(uc *UseCase) {
		uc.topK = k
	}
}

// New builds the retrieval context. idx may be nil, in which case contextual
// queries report the missing index; when present, its corpus version and row
// count must match the store, otherwise position-to-row resolution would
// silently return wrong rows and New fails with model.ErrIndexStale.
func New(ctx context.Context, repo repository.Repository, idx VectorIndex, gemini adapter.Gemini, opts ...Option) (*UseCase, error) {
	uc := &UseCase{
		repo:   repo,
		idx:    idx,
		gemini: gemini,
		topK:   3,
	}

	for _, opt := range opts {
		opt(uc)
	}

	version, err := repo.Version(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := repo.CountMessages(ctx)
	if err != nil {
		return nil, err
	}

	if idx != nil {
		if idx.CorpusVersion() != version || idx.Rows() != rows {
			return nil, goerr.Wrap(model.ErrIndexStale, "store and index artifacts diverge",
				goerr.V("store_version", version), goerr.V("index_version", idx.CorpusVersion()),
				goerr.V("store_rows", rows), goerr.V("index_rows", idx.Rows()))
		}
	}

	uc.users, err = repo.DistinctUserNames(ctx)
	if err != nil {
		return nil, err
	}

	return uc, nil
}
