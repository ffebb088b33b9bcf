package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/usecase/agent"
)

// mockRepo is a mock implementation of repository.Repository for testing
type mockRepo struct {
	version    string
	messages   map[int64]*model.Message
	users      []string
	counts     map[string]int64
	mostActive *repository.UserActivity
}

func (m *mockRepo) GetMessage(ctx context.Context, rowID int64) (*model.Message, error) {
	msg, ok := m.messages[rowID]
	if !ok {
		return nil, errors.New("no such row")
	}
	return msg, nil
}

// GetMessages returns hits in reverse request order, exercising the caller's
// obligation to restore relevance order itself.
func (m *mockRepo) GetMessages(ctx context.Context, rowIDs []int64) ([]*model.Message, error) {
	var msgs []*model.Message
	for i := len(rowIDs) - 1; i >= 0; i-- {
		if msg, ok := m.messages[rowIDs[i]]; ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (m *mockRepo) ListMessages(ctx context.Context, offset, limit int) ([]*model.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRepo) CountMessages(ctx context.Context) (int64, error) {
	return int64(len(m.messages)), nil
}

func (m *mockRepo) CountMessagesByUser(ctx context.Context, userName string) (int64, error) {
	return m.counts[userName], nil
}

func (m *mockRepo) MostActiveUser(ctx context.Context) (*repository.UserActivity, error) {
	if m.mostActive == nil {
		return nil, errors.New("no rows")
	}
	return m.mostActive, nil
}

func (m *mockRepo) TopActiveUsers(ctx context.Context, limit int) ([]repository.UserActivity, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRepo) DistinctUserNames(ctx context.Context) ([]string, error) {
	return m.users, nil
}

func (m *mockRepo) Version(ctx context.Context) (string, error) {
	return m.version, nil
}

func (m *mockRepo) Close() error { return nil }

// mockIndex is a mock implementation of agent.VectorIndex for testing
type mockIndex struct {
	searchFunc  func(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error)
	version     string
	rows        int64
	searchCalls int
}

func (m *mockIndex) Search(ctx context.Context, embedding []float32, k int) ([]index.Neighbor, error) {
	m.searchCalls++
	if m.searchFunc != nil {
		return m.searchFunc(ctx, embedding, k)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndex) CorpusVersion() string { return m.version }
func (m *mockIndex) Rows() int64           { return m.rows }

// mockGemini is a mock implementation of adapter.Gemini for testing
type mockGemini struct {
	generateFunc  func(ctx context.Context, prompt string) (string, error)
	embedFunc     func(ctx context.Context, text string) ([]float32, error)
	generateCalls int
}

func (m *mockGemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.generateCalls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	return "", errors.New("not implemented")
}

func (m *mockGemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func (m *mockGemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func testMessages() map[int64]*model.Message {
	return map[int64]*model.Message{
		0: {RowID: 0, UserID: "1", UserName: "Lily", Text: "I like lilies and roses", Timestamp: "2024-01-01T10:00:00"},
		1: {RowID: 1, UserID: "2", UserName: "Mark", Text: "Planning a trip to the distilleries", Timestamp: "2024-01-01T11:00:00"},
		2: {RowID: 2, UserID: "1", UserName: "Lily", Text: "The concierge was outstanding", Timestamp: "2024-01-02T09:30:00"},
		3: {RowID: 3, UserID: "3", UserName: "Anna", Text: "Lunch anyone?", Timestamp: "2024-01-02T12:00:00"},
	}
}

func testRepo() *mockRepo {
	return &mockRepo{
		version:    "v-test",
		messages:   testMessages(),
		users:      []string{"Lily", "Mark", "Anna"},
		counts:     map[string]int64{"Lily": 10, "Mark": 7, "Anna": 1},
		mostActive: &repository.UserActivity{UserName: "Lily", Count: 10},
	}
}

func testIndex(repo *mockRepo) *mockIndex {
	return &mockIndex{version: repo.version, rows: int64(len(repo.messages))}
}

func newAgentErr(t *testing.T, repo *mockRepo, idx *mockIndex) (*agent.UseCase, error) {
	t.Helper()
	return agent.New(context.Background(), repo, idx, &mockGemini{})
}
