package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestAnswerFactPath(t *testing.T) {
	gemini := &mockGemini{}
	uc := newTestAgent(t, testRepo(), nil, gemini)

	result := uc.Answer(context.Background(), "Who is the most active user?")
	gt.Equal(t, result.Answer, "Lily")
	gt.Equal(t, len(result.Evidence), 1)
	gt.Equal(t, result.Evidence[0].Source, model.SourceFactSeeker)
	gt.Equal(t, result.Evidence[0].Context, "Lily is the most active user with 10 messages.")
	gt.Nil(t, result.ProactiveRecommendation)

	// The synthesizer is bypassed on the fact path
	gt.Equal(t, gemini.generateCalls, 0)

	gt.Equal(t, result.ReasoningTrace, []string{
		"Router: Received query.",
		"Router: Query is fact-based. Using fact seeker.",
		"Synthesizer: Bypassed. Used direct answer from fact seeker.",
		"Router: Calling recommender.",
		"Router: Formatting final response.",
	})
}

func TestAnswerContextualPath(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	idx.searchFunc = func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
		return []index.Neighbor{{RowID: 0, Distance: 0.1}}, nil
	}
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
		generateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "Lily likes lilies and roses.", nil
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	result := uc.Answer(context.Background(), "What does Lily like?")
	gt.Equal(t, result.Answer, "Lily likes lilies and roses.")
	gt.Equal(t, len(result.Evidence), 1)
	gt.Equal(t, result.Evidence[0].Source, model.SourceContextSeeker)
	gt.Equal(t, result.Evidence[0].RowID, int64(0))

	// The retrieved message carries a strong preference
	gt.NotNil(t, result.ProactiveRecommendation)
	gt.Equal(t, result.ProactiveRecommendation.ActionID, "save_preference")
	gt.S(t, result.ProactiveRecommendation.SuggestionText).Contains("strong preference")

	gt.Equal(t, result.ReasoningTrace, []string{
		"Router: Received query.",
		"Router: Query is contextual. Using context seeker.",
		"Router: Calling synthesizer.",
		"Router: Calling recommender.",
		"Router: Formatting final response.",
	})
}

func TestAnswerNoContextShortCircuit(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	idx.searchFunc = func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
		return nil, nil
	}
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	result := uc.Answer(context.Background(), "What is the meaning of life?")
	gt.Equal(t, result.Answer, "I'm sorry, I couldn't find any information about that.")
	gt.Equal(t, len(result.Evidence), 0)
	gt.NotNil(t, result.Evidence)
	gt.Nil(t, result.ProactiveRecommendation)

	// Neither the synthesizer nor the recommender runs on the short circuit
	gt.Equal(t, gemini.generateCalls, 0)
	gt.Equal(t, result.ReasoningTrace, []string{
		"Router: Received query.",
		"Router: Query is contextual. Using context seeker.",
		"Context seeker: No context found.",
	})
}

func TestAnswerSearchFailureDegrades(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	idx.searchFunc = func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
		return nil, errors.New("index corrupted")
	}
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	result := uc.Answer(context.Background(), "What does Lily like?")
	gt.Equal(t, result.Answer, "I'm sorry, I couldn't find any information about that.")
	gt.Nil(t, result.ProactiveRecommendation)
}

func TestAnswerMissingIndex(t *testing.T) {
	uc := newTestAgent(t, testRepo(), nil, &mockGemini{})

	result := uc.Answer(context.Background(), "What does Lily like?")
	gt.Equal(t, result.Answer, "The message index has not been built yet. Please run the index step first.")
	gt.Equal(t, len(result.Evidence), 0)
	gt.Nil(t, result.ProactiveRecommendation)
}

func TestAnswerFactPathStillEvaluatesRecommender(t *testing.T) {
	// Fact evidence never yields a recommendation even when its context
	// sentence contains recommendation keywords.
	repo := testRepo()
	repo.mostActive.UserName = "trip planning lilies"
	gemini := &mockGemini{}
	uc := newTestAgent(t, repo, nil, gemini)

	result := uc.Answer(context.Background(), "who is the most active user")
	gt.Nil(t, result.ProactiveRecommendation)
	gt.Equal(t, gemini.generateCalls, 0)
}
