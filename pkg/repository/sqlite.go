package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteRepo implements Repository over a read-only SQLite store file.
type sqliteRepo struct {
	db *sql.DB
}

// Open opens an existing message store in read-only mode. It fails with
// model.ErrStoreMissing if no store has been built at path.
func Open(path string) (Repository, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerr.Wrap(model.ErrStoreMissing, "store file not found", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open store", goerr.V("path", path))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to verify store", goerr.V("path", path))
	}

	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Close() error {
	return r.db.Close()
}

const messageColumns = `row_id, CAST(user_id AS TEXT), user_name, message, CAST(timestamp AS TEXT)`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var msg model.Message
	if err := row.Scan(&msg.RowID, &msg.UserID, &msg.UserName, &msg.Text, &msg.Timestamp); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *sqliteRepo) GetMessage(ctx context.Context, rowID int64) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE row_id = ?`, rowID)

	msg, err := scanMessage(row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("row_id", rowID))
	}
	return msg, nil
}

func (r *sqliteRepo) GetMessages(ctx context.Context, rowIDs []int64) ([]*model.Message, error) {
	if len(rowIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(rowIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(rowIDs))
	for i, id := range rowIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE row_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get messages")
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (r *sqliteRepo) ListMessages(ctx context.Context, offset, limit int) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages ORDER BY row_id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (r *sqliteRepo) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count messages")
	}
	return count, nil
}

func (r *sqliteRepo) CountMessagesByUser(ctx context.Context, userName string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_name = ?`, userName).Scan(&count)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count messages by user", goerr.V("user_name", userName))
	}
	return count, nil
}

// MostActiveUser breaks ties by lexicographic user name order so repeated
// calls against the same store always return the same user.
func (r *sqliteRepo) MostActiveUser(ctx context.Context) (*UserActivity, error) {
	var ua UserActivity
	err := r.db.QueryRowContext(ctx, `
		SELECT user_name, COUNT(*) AS msg_count
		FROM messages
		GROUP BY user_name
		ORDER BY msg_count DESC, user_name ASC
		LIMIT 1
	`).Scan(&ua.UserName, &ua.Count)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find most active user")
	}
	return &ua, nil
}

func (r *sqliteRepo) TopActiveUsers(ctx context.Context, limit int) ([]UserActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_name, COUNT(*) AS msg_count
		FROM messages
		GROUP BY user_name
		ORDER BY msg_count DESC, user_name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list top active users")
	}
	defer rows.Close()

	var users []UserActivity
	for rows.Next() {
		var ua UserActivity
		if err := rows.Scan(&ua.UserName, &ua.Count); err != nil {
			return nil, goerr.Wrap(err, "failed to scan user activity")
		}
		users = append(users, ua)
	}

	return users, rows.Err()
}

func (r *sqliteRepo) DistinctUserNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_name FROM messages`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list user names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, goerr.Wrap(err, "failed to scan user name")
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (r *sqliteRepo) Version(ctx context.Context) (string, error) {
	var version string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'corpus_version'`).Scan(&version)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read corpus version")
	}
	return version, nil
}

// Build creates a new store file at path from raw source records. The store
// is written to a temporary sibling file and renamed over any previous store
// only after all rows are inserted, so a failed build never leaves a partial
// store behind. It returns the corpus version of the new store.
//
// Column types are inferred from the first record: integer-valued fields
// become INTEGER, float-valued fields REAL, everything else (timestamps
// included) TEXT. row_id is assigned 0..N-1 in record order.
func Build(ctx context.Context, path string, records []map[string]any) (string, error) {
	if len(records) == 0 {
		return "", goerr.Wrap(model.ErrEmptyCorpus, "refusing to build an empty store")
	}

	columns, err := inferColumns(records[0])
	if err != nil {
		return "", err
	}

	tmpPath := path + ".tmp"
	os.Remove(tmpPath)

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create store file", goerr.V("path", tmpPath))
	}

	version, err := build(ctx, db, columns, records)
	if cerr := db.Close(); err == nil && cerr != nil {
		err = goerr.Wrap(cerr, "failed to close store file")
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", goerr.Wrap(err, "failed to replace store", goerr.V("path", path))
	}

	return version, nil
}

type column struct {
	name    string
	sqlType string
}

// requiredColumns must be present and non-null in every source record; the
// message columns are scanned into plain strings at query time.
var requiredColumns = []string{"user_id", "user_name", "message", "timestamp"}

// inferColumns derives the table schema from the first fetched record, the
// same way the store would look if the source said so itself.
func inferColumns(first map[string]any) ([]column, error) {
	if err := validateRecord(first); err != nil {
		return nil, err
	}

	// Fixed columns first, then any extra source fields in sorted order so
	// the schema does not depend on map iteration.
	known := requiredColumns
	isKnown := make(map[string]bool, len(known))
	for _, name := range known {
		isKnown[name] = true
	}

	var extras []string
	for name := range first {
		if !isKnown[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)

	var columns []column
	for _, name := range append(known, extras...) {
		columns = append(columns, column{name: name, sqlType: sqlTypeOf(first[name])})
	}
	return columns, nil
}

func validateRecord(record map[string]any) error {
	for _, required := range requiredColumns {
		if record[required] == nil {
			return goerr.Wrap(model.ErrIngestion, "source record is missing a required field",
				goerr.V("field", required))
		}
	}
	return nil
}

func sqlTypeOf(v any) string {
	switch val := v.(type) {
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return "INTEGER"
		}
		return "REAL"
	default:
		return "TEXT"
	}
}

// normalizeValue converts a decoded JSON value into its column
// representation.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func build(ctx context.Context, db *sql.DB, columns []column, records []map[string]any) (string, error) {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, `row_id INTEGER PRIMARY KEY`)
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%q %s", col.name, col.sqlType))
	}

	if _, err := db.ExecContext(ctx,
		`CREATE TABLE messages (`+strings.Join(defs, ", ")+`)`); err != nil {
		return "", goerr.Wrap(err, "failed to create messages table")
	}

	if _, err := db.ExecContext(ctx,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return "", goerr.Wrap(err, "failed to create meta table")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to begin store transaction")
	}
	defer tx.Rollback()

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf("%q", col.name)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)+1), ",")

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO messages (row_id, %s) VALUES (%s)`,
		strings.Join(names, ", "), placeholders))
	if err != nil {
		return "", goerr.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for rowID, record := range records {
		// Required fields are checked per record: a NULL in any of them
		// would only surface later, as a query-time scan error.
		if err := validateRecord(record); err != nil {
			return "", goerr.Wrap(err, "malformed record", goerr.V("row_id", rowID))
		}

		args := make([]any, 0, len(columns)+1)
		args = append(args, int64(rowID))
		for _, col := range columns {
			args = append(args, normalizeValue(record[col.name]))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", goerr.Wrap(err, "failed to insert message", goerr.V("row_id", rowID))
		}
	}

	version := uuid.New().String()
	for key, value := range map[string]string{
		"corpus_version": version,
		"rows":           fmt.Sprintf("%d", len(records)),
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return "", goerr.Wrap(err, "failed to write store meta", goerr.V("key", key))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", goerr.Wrap(err, "failed to commit store build")
	}

	return version, nil
}
