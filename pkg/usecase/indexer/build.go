package indexer

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// BuildResult summarizes a completed index build.
type BuildResult struct {
	Rows          int64
	Dim           int
	CorpusVersion string
}

// Build scans the store ordered by row ID, embeds each row's enriched text
// in batches, and replaces the index artifact at indexPath. The scan order
// is the index order: vector i belongs to the message with row_id i.
func (u *UseCase) Build(ctx context.Context, repo repository.Repository, indexPath string) (*BuildResult, error) {
	logger := logging.From(ctx)

	total, err := repo.CountMessages(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, goerr.Wrap(model.ErrEmptyCorpus, "nothing to index")
	}

	version, err := repo.Version(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("building index", "rows", total, "corpus_version", version,
		"batch_size", u.batchSize, "embedding_model", u.embeddingModel)

	var builder *index.Builder
	for offset := 0; int64(offset) < total; {
		msgs, err := repo.ListMessages(ctx, offset, u.batchSize)
		if err != nil {
			if builder != nil {
				builder.Abort()
			}
			return nil, err
		}
		if len(msgs) == 0 {
			break
		}

		texts := make([]string, len(msgs))
		rowIDs := make([]int64, len(msgs))
		for i, msg := range msgs {
			texts[i] = msg.EmbeddingInput()
			rowIDs[i] = msg.RowID
		}

		vectors, err := u.gemini.EmbedBatch(ctx, texts)
		if err != nil {
			if builder != nil {
				builder.Abort()
			}
			return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "failed to embed batch",
				goerr.V("offset", offset), goerr.V("cause", err))
		}

		if builder == nil {
			// The embedding dimension is whatever the model returns for the
			// first batch; every later batch must agree.
			builder, err = index.NewBuilder(indexPath, len(vectors[0]))
			if err != nil {
				return nil, err
			}
		}

		if err := builder.Add(ctx, rowIDs, vectors); err != nil {
			builder.Abort()
			return nil, err
		}

		offset += len(msgs)
		logger.Debug("embedded batch", "offset", offset, "rows", len(msgs))
	}

	if builder == nil {
		return nil, goerr.Wrap(model.ErrEmptyCorpus, "store scan produced no rows")
	}

	result := &BuildResult{
		Rows:          total,
		Dim:           builder.Dim(),
		CorpusVersion: version,
	}

	if err := builder.Finalize(ctx, version, u.embeddingModel); err != nil {
		return nil, err
	}

	logger.Info("index built", "path", indexPath, "rows", result.Rows, "dim", result.Dim)

	return result, nil
}
