package agent

import (
	"context"
	"errors"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
)

const (
	noInformationAnswer = "I'm sorry, I couldn't find any information about that."
	indexMissingAnswer  = "The message index has not been built yet. Please run the index step first."
)

// Answer runs the full pipeline for one query and always returns a complete
// QueryResult; retrieval failures degrade to explanatory answers rather than
// errors. The reasoning trace records which path and tools were used, in
// order.
func (uc *UseCase) Answer(ctx context.Context, query string) *model.QueryResult {
	logger := logging.From(ctx)
	logger.Info("new query received", "query", query)

	trace := []string{"Router: Received query."}

	var answer string
	var evidence []model.Evidence

	if fact := uc.SeekFacts(ctx, query); fact != nil {
		trace = append(trace, "Router: Query is fact-based. Using fact seeker.")
		evidence = []model.Evidence{{
			Source:  model.SourceFactSeeker,
			Context: fact.Context,
		}}
		answer = fact.Answer
		trace = append(trace, "Synthesizer: Bypassed. Used direct answer from fact seeker.")
	} else {
		trace = append(trace, "Router: Query is contextual. Using context seeker.")

		var err error
		evidence, err = uc.SeekContext(ctx, query, uc.topK)
		if err != nil {
			if errors.Is(err, model.ErrIndexMissing) {
				logger.Error("context seeker has no index", "error", err)
				trace = append(trace, "Context seeker: Index not available.")
				return &model.QueryResult{
					Answer:                  indexMissingAnswer,
					Evidence:                []model.Evidence{},
					ProactiveRecommendation: nil,
					ReasoningTrace:          trace,
				}
			}
			// Search failures fold into the no-context short circuit.
			logger.Error("context seeker failed", "error", err)
			evidence = nil
		}

		if len(evidence) == 0 {
			trace = append(trace, "Context seeker: No context found.")
			return &model.QueryResult{
				Answer:                  noInformationAnswer,
				Evidence:                []model.Evidence{},
				ProactiveRecommendation: nil,
				ReasoningTrace:          trace,
			}
		}

		trace = append(trace, "Router: Calling synthesizer.")
		answer = uc.Synthesize(ctx, query, evidence)
	}

	trace = append(trace, "Router: Calling recommender.")
	recommendation := uc.Recommend(ctx, query, evidence)

	trace = append(trace, "Router: Formatting final response.")
	return &model.QueryResult{
		Answer:                  answer,
		Evidence:                evidence,
		ProactiveRecommendation: recommendation,
		ReasoningTrace:          trace,
	}
}
