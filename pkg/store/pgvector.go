package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/tutor/internal/models"
)

type PgVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PgVectorStore keeps chunk embeddings in Postgres with the pgvector
// extension. Every row carries a namespace; queries, samples and
// deletes never cross namespaces.
type PgVectorStore struct {
	config PgVectorConfig
	pool   *pgxpool.Pool
}

func NewPgVectorWithConfig(config PgVectorConfig) (*PgVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &PgVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PgVectorStore) initialize() error {
	ctx := context.Background()

	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			document_id TEXT NOT NULL,
			user_id TEXT,
			chunk_index INTEGER,
			content TEXT,
			filename TEXT,
			source_url TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createVectorIndex)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %v", err)
	}

	createNamespaceIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_namespace_idx
		ON %s (namespace)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createNamespaceIndex)
	if err != nil {
		return fmt.Errorf("failed to create namespace index: %v", err)
	}

	return nil
}

func (vs *PgVectorStore) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, namespace, document_id, user_id, chunk_index, content, filename, source_url, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for start := 0; start < len(records); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %v", err)
		}

		for _, rec := range records[start:end] {
			_, err = tx.Exec(ctx, stmt,
				rec.ID,
				namespace,
				rec.Chunk.DocumentID,
				rec.Chunk.UserID,
				rec.Chunk.Index,
				sanitizeUTF8(rec.Chunk.Text),
				rec.Chunk.Filename,
				rec.Chunk.SourceURL,
				pgvector.NewVector(rec.Values),
			)
			if err != nil {
				tx.Rollback(ctx)
				return fmt.Errorf("failed to insert chunk: %v", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %v", err)
		}
	}

	return nil
}

func (vs *PgVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, user_id, chunk_index, content, filename, source_url,
			1 - (embedding <=> $2) AS score
		FROM %s
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, namespace, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(
			&m.ID,
			&m.Chunk.DocumentID,
			&m.Chunk.UserID,
			&m.Chunk.Index,
			&m.Chunk.Text,
			&m.Chunk.Filename,
			&m.Chunk.SourceURL,
			&m.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Sample returns up to limit chunks from the namespace in document
// order, without similarity scoring.
func (vs *PgVectorStore) Sample(ctx context.Context, namespace string, limit int) ([]models.Match, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, user_id, chunk_index, content, filename, source_url
		FROM %s
		WHERE namespace = $1
		ORDER BY chunk_index
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample chunks: %v", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(
			&m.ID,
			&m.Chunk.DocumentID,
			&m.Chunk.UserID,
			&m.Chunk.Index,
			&m.Chunk.Text,
			&m.Chunk.Filename,
			&m.Chunk.SourceURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (vs *PgVectorStore) Delete(ctx context.Context, namespace string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE namespace = $1", vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, stmt, namespace); err != nil {
		return fmt.Errorf("failed to delete namespace: %v", err)
	}
	return nil
}

func (vs *PgVectorStore) Dimensions() int {
	return vs.config.VectorDim
}

func (vs *PgVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
