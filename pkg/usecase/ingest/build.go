package ingest

import (
	"context"
	"errors"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// BuildResult summarizes a completed store build.
type BuildResult struct {
	Rows          int64
	CorpusVersion string

	// Partial is true when the source cut the fetch short (quota) and the
	// store holds only the pages fetched before that point.
	Partial bool
}

// Build fetches every page from the source in increasing offset order and
// replaces the store at storePath. Pages must be concatenated in the order
// they were requested: row IDs are assigned from that order and the
// embedding index depends on it.
//
// A quota or not-found signal from the source ends pagination and keeps what
// was fetched. Transport errors and malformed responses abort the build; the
// previous store is left untouched in that case.
func (u *UseCase) Build(ctx context.Context, storePath string) (*BuildResult, error) {
	logger := logging.From(ctx)

	var records []map[string]any
	result := &BuildResult{}

	for offset := 0; ; {
		items, err := u.source.Fetch(ctx, offset, u.pageSize)
		switch {
		case errors.Is(err, model.ErrQuotaExhausted):
			logger.Warn("source quota exhausted, keeping fetched pages",
				"fetched", len(records), "offset", offset)
			result.Partial = true
		case errors.Is(err, model.ErrSourceNotFound):
			logger.Info("source reported end of data", "offset", offset)
		case err != nil:
			return nil, goerr.Wrap(model.ErrIngestion, "failed to fetch page",
				goerr.V("offset", offset), goerr.V("cause", err))
		}
		if err != nil || len(items) == 0 {
			break
		}

		records = append(records, items...)
		offset += len(items)
		logger.Debug("fetched page", "offset", offset, "page_rows", len(items))
	}

	if len(records) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyCorpus, "source returned no messages, keeping previous store")
	}

	version, err := repository.Build(ctx, storePath, records)
	if err != nil {
		return nil, err
	}

	result.Rows = int64(len(records))
	result.CorpusVersion = version

	logger.Info("store built",
		"path", storePath, "rows", result.Rows,
		"corpus_version", version, "partial", result.Partial)

	u.logInsights(ctx, storePath)

	return result, nil
}

// logInsights reports corpus statistics from the freshly built store. Purely
// informational; failures here never fail the build.
func (u *UseCase) logInsights(ctx context.Context, storePath string) {
	logger := logging.From(ctx)

	repo, err := repository.Open(storePath)
	if err != nil {
		logger.Warn("could not open store for insights", "error", err)
		return
	}
	defer repo.Close()

	total, err := repo.CountMessages(ctx)
	if err == nil {
		logger.Info("total messages analyzed", "count", total)
	}

	users, err := repo.DistinctUserNames(ctx)
	if err == nil {
		logger.Info("unique users found", "count", len(users))
	}

	top, err := repo.TopActiveUsers(ctx, 5)
	if err == nil {
		for _, ua := range top {
			logger.Info("top active user", "user_name", ua.UserName, "messages", ua.Count)
		}
	}
}
