// Package index persists and queries the embedding index as a sqlite-vec
// artifact. The index is a flat, exact structure searched with L2 distance:
// a full scan per query, which is the right trade-off while the corpus stays
// in the low thousands of rows. It does not scale beyond that.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver.
	vec.Auto()
}

// Neighbor is one vector search hit. RowID is the store row the vector was
// built from; Distance is squared L2, lower is more similar.
type Neighbor struct {
	RowID    int64
	Distance float64
}

// Index is a read-only handle to a built index artifact.
type Index struct {
	db            *sql.DB
	corpusVersion string
	rows          int64
	dim           int
}

// Open loads an index artifact. It fails with model.ErrIndexMissing if no
// index has been built at path.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerr.Wrap(model.ErrIndexMissing, "index file not found", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open index", goerr.V("path", path))
	}

	idx := &Index{db: db}
	meta := map[string]*string{
		"corpus_version": &idx.corpusVersion,
	}
	var rows, dim string
	meta["rows"] = &rows
	meta["dim"] = &dim

	for key, dst := range meta {
		if err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(dst); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to read index meta", goerr.V("key", key))
		}
	}
	if idx.rows, err = strconv.ParseInt(rows, 10, 64); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "invalid rows in index meta")
	}
	if idx.dim, err = strconv.Atoi(dim); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "invalid dim in index meta")
	}

	return idx, nil
}

// CorpusVersion returns the version of the store this index was built from.
func (idx *Index) CorpusVersion() string { return idx.corpusVersion }

// Rows returns the number of indexed vectors.
func (idx *Index) Rows() int64 { return idx.rows }

// Dim returns the embedding dimension.
func (idx *Index) Dim() int { return idx.dim }

func (idx *Index) Close() error { return idx.db.Close() }

// Search returns the k nearest vectors to embedding by L2 distance, nearest
// first.
func (idx *Index) Search(ctx context.Context, embedding []float32, k int) ([]Neighbor, error) {
	if len(embedding) != idx.dim {
		return nil, goerr.Wrap(model.ErrSearchFailed, "query dimension mismatch",
			goerr.V("want", idx.dim), goerr.V("got", len(embedding)))
	}

	blob, err := vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize query vector")
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT row_id, vec_distance_l2(embedding, ?) AS distance
		FROM vectors
		ORDER BY distance ASC
		LIMIT ?
	`, blob, k)
	if err != nil {
		return nil, goerr.Wrap(err, "index search query failed")
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.RowID, &n.Distance); err != nil {
			return nil, goerr.Wrap(err, "failed to scan neighbor")
		}
		neighbors = append(neighbors, n)
	}

	return neighbors, rows.Err()
}

// Builder writes a new index artifact. The artifact is assembled at a
// temporary path and only renamed over the previous index by Finalize, after
// the meta record is in place.
type Builder struct {
	db      *sql.DB
	path    string
	tmpPath string
	dim     int
	added   int64
}

// NewBuilder creates an index builder for vectors of the given dimension.
func NewBuilder(path string, dim int) (*Builder, error) {
	if dim <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dim", dim))
	}

	tmpPath := path + ".tmp"
	os.Remove(tmpPath)

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create index file", goerr.V("path", tmpPath))
	}

	if _, err := db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE vectors USING vec0(row_id INTEGER PRIMARY KEY, embedding FLOAT[%d])`, dim)); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return nil, goerr.Wrap(err, "failed to create vectors table")
	}

	if _, err := db.Exec(`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return nil, goerr.Wrap(err, "failed to create meta table")
	}

	return &Builder{db: db, path: path, tmpPath: tmpPath, dim: dim}, nil
}

// Dim returns the vector dimension the builder was created with.
func (b *Builder) Dim() int { return b.dim }

// Add appends one batch of vectors keyed by their store row IDs.
func (b *Builder) Add(ctx context.Context, rowIDs []int64, vectors [][]float32) error {
	if len(rowIDs) != len(vectors) {
		return goerr.New("row ID and vector counts differ",
			goerr.V("row_ids", len(rowIDs)), goerr.V("vectors", len(vectors)))
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin index transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors (row_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare vector insert")
	}
	defer stmt.Close()

	for i, rowID := range rowIDs {
		if len(vectors[i]) != b.dim {
			return goerr.New("vector dimension mismatch",
				goerr.V("row_id", rowID), goerr.V("want", b.dim), goerr.V("got", len(vectors[i])))
		}

		blob, err := vec.SerializeFloat32(vectors[i])
		if err != nil {
			return goerr.Wrap(err, "failed to serialize vector", goerr.V("row_id", rowID))
		}

		if _, err := stmt.ExecContext(ctx, rowID, blob); err != nil {
			return goerr.Wrap(err, "failed to insert vector", goerr.V("row_id", rowID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit vector batch")
	}

	b.added += int64(len(rowIDs))
	return nil
}

// Finalize stamps the artifact meta and atomically replaces the previous
// index. The builder is unusable afterwards.
func (b *Builder) Finalize(ctx context.Context, corpusVersion, embeddingModel string) error {
	meta := map[string]string{
		"corpus_version":  corpusVersion,
		"rows":            strconv.FormatInt(b.added, 10),
		"dim":             strconv.Itoa(b.dim),
		"embedding_model": embeddingModel,
	}
	for key, value := range meta {
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			b.Abort()
			return goerr.Wrap(err, "failed to write index meta", goerr.V("key", key))
		}
	}

	if err := b.db.Close(); err != nil {
		os.Remove(b.tmpPath)
		return goerr.Wrap(err, "failed to close index file")
	}

	if err := os.Rename(b.tmpPath, b.path); err != nil {
		os.Remove(b.tmpPath)
		return goerr.Wrap(err, "failed to replace index", goerr.V("path", b.path))
	}

	return nil
}

// Abort discards the partially built artifact.
func (b *Builder) Abort() {
	b.db.Close()
	os.Remove(b.tmpPath)
}
