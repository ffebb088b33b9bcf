package agent

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SeekContext embeds the query and returns the most relevant messages as
// evidence, nearest first. The query is embedded through the same adapter
// the index was built with; embedding a differently shaped string than at
// build time silently degrades relevance, so callers must not preprocess the
// query.
func (uc *UseCase) SeekContext(ctx context.Context, query string, k int) ([]model.Evidence, error) {
	logger := logging.From(ctx)

	if uc.idx == nil {
		return nil, goerr.Wrap(model.ErrIndexMissing, "context seeker has no index")
	}
	if k <= 0 {
		k = uc.topK
	}

	embedding, err := uc.gemini.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSearchFailed, "failed to embed query", goerr.V("cause", err))
	}

	neighbors, err := uc.idx.Search(ctx, embedding, k)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSearchFailed, "index search failed", goerr.V("cause", err))
	}

	rowIDs := make([]int64, len(neighbors))
	for i, n := range neighbors {
		rowIDs[i] = n.RowID
	}

	msgs, err := uc.repo.GetMessages(ctx, rowIDs)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSearchFailed, "failed to resolve rows", goerr.V("cause", err))
	}

	byRowID := make(map[int64]*model.Message, len(msgs))
	for _, msg := range msgs {
		byRowID[msg.RowID] = msg
	}

	// The batch lookup is set-based; restore the neighbor relevance order
	// explicitly. Positions with no store row are dropped, not an error.
	evidence := make([]model.Evidence, 0, len(neighbors))
	for _, n := range neighbors {
		msg, ok := byRowID[n.RowID]
		if !ok {
			logger.Warn("index position has no store row, dropping", "row_id", n.RowID)
			continue
		}
		evidence = append(evidence, model.Evidence{
			UserName:  msg.UserName,
			Message:   msg.Text,
			Timestamp: msg.Timestamp,
			RowID:     msg.RowID,
			Source:    model.SourceContextSeeker,
		})
	}

	logger.Info("context seeker resolved evidence", "count", len(evidence))
	return evidence, nil
}
