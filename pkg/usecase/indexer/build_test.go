package indexer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/usecase/indexer"
	"github.com/m-mizutani/gt"
)

// mockGemini embeds texts deterministically: the vector depends only on the
// text, never on how texts are grouped into batches.
type mockGemini struct {
	embedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	batchCalls     int
}

func (m *mockGemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockGemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockGemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.embedBatchFunc != nil {
		return m.embedBatchFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = textVector(text)
	}
	return vectors, nil
}

func textVector(text string) []float32 {
	v := make([]float32, 4)
	for i, c := range []byte(text) {
		v[i%4] += float32(c)
	}
	return v
}

func buildStore(t *testing.T, dir string, rows int) (string, string) {
	t.Helper()

	records := make([]map[string]any, rows)
	for i := range records {
		records[i] = map[string]any{
			"user_id":   json.Number("1"),
			"user_name": "Lily",
			"message":   fmt.Sprintf("message %d", i),
			"timestamp": "2024-01-01T10:00:00",
		}
	}

	path := filepath.Join(dir, "messages.db")
	version, err := repository.Build(context.Background(), path, records)
	gt.NoError(t, err)
	return path, version
}

func TestBuildIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storePath, version := buildStore(t, dir, 5)
	indexPath := filepath.Join(dir, "index.db")

	repo, err := repository.Open(storePath)
	gt.NoError(t, err)
	defer repo.Close()

	gemini := &mockGemini{}
	uc := indexer.New(gemini, indexer.WithBatchSize(2), indexer.WithEmbeddingModelName("test-model"))

	result, err := uc.Build(ctx, repo, indexPath)
	gt.NoError(t, err)
	gt.Equal(t, result.Rows, int64(5))
	gt.Equal(t, result.Dim, 4)
	gt.Equal(t, result.CorpusVersion, version)
	gt.Equal(t, gemini.batchCalls, 3)

	idx, err := index.Open(indexPath)
	gt.NoError(t, err)
	defer idx.Close()

	gt.Equal(t, idx.CorpusVersion(), version)
	gt.Equal(t, idx.Rows(), int64(5))

	// Searching with the exact embedding of row 3's enriched text must
	// return row 3 as the nearest neighbor.
	neighbors, err := idx.Search(ctx, textVector("Lily: message 3"), 1)
	gt.NoError(t, err)
	gt.Equal(t, len(neighbors), 1)
	gt.Equal(t, neighbors[0].RowID, int64(3))
}

func TestBuildBatchSizeDoesNotChangeVectors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storePath, _ := buildStore(t, dir, 6)

	repo, err := repository.Open(storePath)
	gt.NoError(t, err)
	defer repo.Close()

	search := func(indexPath string, batchSize int) []index.Neighbor {
		uc := indexer.New(&mockGemini{}, indexer.WithBatchSize(batchSize))
		_, err := uc.Build(ctx, repo, indexPath)
		gt.NoError(t, err)

		idx, err := index.Open(indexPath)
		gt.NoError(t, err)
		defer idx.Close()

		neighbors, err := idx.Search(ctx, textVector("Lily: message 4"), 3)
		gt.NoError(t, err)
		return neighbors
	}

	small := search(filepath.Join(dir, "small.db"), 1)
	large := search(filepath.Join(dir, "large.db"), 100)
	gt.Equal(t, small, large)
}

func TestBuildEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storePath, _ := buildStore(t, dir, 3)
	indexPath := filepath.Join(dir, "index.db")

	repo, err := repository.Open(storePath)
	gt.NoError(t, err)
	defer repo.Close()

	gemini := &mockGemini{
		embedBatchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("model overloaded")
		},
	}
	uc := indexer.New(gemini)

	_, err = uc.Build(ctx, repo, indexPath)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrEmbeddingUnavailable))

	_, err = index.Open(indexPath)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrIndexMissing))
}
