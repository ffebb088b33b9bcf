// Package ingest builds the message store from a paginated source.
package ingest

import (
	"github.com/m-mizutani/burrow/pkg/adapter"
)

// UseCase fetches all messages from a source and persists them as a new
// store artifact.
type UseCase struct {
	source   adapter.MessageSource
	pageSize int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithPageSize bounds how many records are requested per page
func WithPageSize(n int) Option {
	return func(uc *UseCase) {
		uc.pageSize = n
	}
}

// New creates a new ingest UseCase instance
func New(source adapter.MessageSource, opts ...Option) *UseCase {
	uc := &UseCase{
		source:   source,
		pageSize: 500,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
