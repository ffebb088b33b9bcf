package repository

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/model"
)

// UserActivity is a user name with its message count.
type UserActivity struct {
	UserName string
	Count    int64
}

// Repository defines read access to a built message store. All methods are
// safe for concurrent use; the store is immutable once built.
type Repository interface {
	// GetMessage retrieves a single message by row ID
	GetMessage(ctx context.Context, rowID int64) (*model.Message, error)

	// GetMessages retrieves messages for the given row IDs. Row IDs with no
	// matching row are silently omitted; the result order is unspecified.
	GetMessages(ctx context.Context, rowIDs []int64) ([]*model.Message, error)

	// ListMessages retrieves messages ordered by row ID ascending. This
	// order is the embedding index order.
	ListMessages(ctx context.Context, offset, limit int) ([]*model.Message, error)

	// CountMessages returns the total number of rows
	CountMessages(ctx context.Context) (int64, error)

	// CountMessagesByUser returns the message count for one user name
	CountMessagesByUser(ctx context.Context, userName string) (int64, error)

	// MostActiveUser returns the user with the most messages. Ties are
	// broken deterministically by lexicographic user name order.
	MostActiveUser(ctx context.Context) (*UserActivity, error)

	// TopActiveUsers returns up to limit users ordered by message count
	TopActiveUsers(ctx context.Context, limit int) ([]UserActivity, error)

	// DistinctUserNames returns all known user names in store report order
	DistinctUserNames(ctx context.Context) ([]string, error)

	// Version returns the corpus version stamped at build time
	Version(ctx context.Context) (string, error)

	Close() error
}
