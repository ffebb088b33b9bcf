package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestSeekContextRelevanceOrder(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	idx.searchFunc = func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
		gt.Equal(t, k, 3)
		return []index.Neighbor{
			{RowID: 2, Distance: 0.1},
			{RowID: 0, Distance: 0.4},
			{RowID: 3, Distance: 0.9},
		}, nil
	}
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	evidence, err := uc.SeekContext(context.Background(), "what happened with the concierge", 3)
	gt.NoError(t, err)
	gt.Equal(t, len(evidence), 3)

	// The mock repo returns rows in reverse; evidence must still come back
	// nearest first.
	gt.Equal(t, evidence[0].RowID, int64(2))
	gt.Equal(t, evidence[1].RowID, int64(0))
	gt.Equal(t, evidence[2].RowID, int64(3))
	gt.Equal(t, evidence[0].UserName, "Lily")
	gt.Equal(t, evidence[0].Message, "The concierge was outstanding")
	gt.Equal(t, evidence[0].Source, model.SourceContextSeeker)
}

func TestSeekContextDropsMissingRows(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	idx.searchFunc = func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
		return []index.Neighbor{
			{RowID: 1, Distance: 0.2},
			{RowID: 99, Distance: 0.3},
		}, nil
	}
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	evidence, err := uc.SeekContext(context.Background(), "any trips planned?", 2)
	gt.NoError(t, err)
	gt.Equal(t, len(evidence), 1)
	gt.Equal(t, evidence[0].RowID, int64(1))
}

func TestSeekContextNoIndex(t *testing.T) {
	uc := newTestAgent(t, testRepo(), nil, &mockGemini{})

	_, err := uc.SeekContext(context.Background(), "anything", 3)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrIndexMissing))
}

func TestSeekContextEmbedFailure(t *testing.T) {
	repo := testRepo()
	idx := testIndex(repo)
	gemini := &mockGemini{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("model overloaded")
		},
	}
	uc := newTestAgent(t, repo, idx, gemini)

	_, err := uc.SeekContext(context.Background(), "anything", 3)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrSearchFailed))
	gt.Equal(t, idx.searchCalls, 0)
}

func TestNewRejectsStaleIndex(t *testing.T) {
	repo := testRepo()

	tests := []struct {
		name string
		idx  *mockIndex
	}{
		{name: "version mismatch", idx: &mockIndex{version: "v-other", rows: int64(len(repo.messages))}},
		{name: "row count mismatch", idx: &mockIndex{version: repo.version, rows: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newAgentErr(t, repo, tc.idx)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrIndexStale))
		})
	}
}
