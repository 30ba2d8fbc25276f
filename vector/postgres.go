package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"hiraku/logger"
	"hiraku/model"
)

// PostgresIndex stores vector records in a pgvector table. All rows
// carry a namespace column; every statement filters on it, which is
// what isolates tenants from each other.
type PostgresIndex struct {
	pool      *pgxpool.Pool
	embedder  model.Embedder
	namespace string
	log       *logger.Logger
}

func NewPostgresIndex(pool *pgxpool.Pool, embedder model.Embedder, namespace string, log *logger.Logger) (*PostgresIndex, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	return &PostgresIndex{
		pool:      pool,
		embedder:  embedder,
		namespace: namespace,
		log:       log.With("component", "vector_index", "namespace", namespace),
	}, nil
}

// Init creates the vector_records table and its indexes. Dimension must
// match the embedding model.
func Init(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS vector_records (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		document_id TEXT NOT NULL,
		chunk_index INT NOT NULL,
		source TEXT,
		content TEXT NOT NULL,
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_vector_records_namespace ON vector_records(namespace);

	CREATE INDEX IF NOT EXISTS idx_vector_records_embedding ON vector_records
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`, dimension)
	_, err := pool.Exec(ctx, query)
	return err
}

func (p *PostgresIndex) Add(ctx context.Context, ids []string, texts []string, metadatas []Metadata) error {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, texts and metadatas must have equal length")
	}
	if len(ids) == 0 {
		return nil
	}

	embeddings := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		emb, err := p.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ids[i], err)
		}
		embeddings[i] = pgvector.NewVector(emb)
	}

	batch := &pgx.Batch{}
	for i := range ids {
		batch.Queue(`
			INSERT INTO vector_records (id, namespace, document_id, chunk_index, source, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			ids[i], p.namespace, metadatas[i].DocumentID, metadatas[i].ChunkIndex,
			metadatas[i].Source, texts[i], embeddings[i],
		)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range ids {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert vector records: %w", err)
		}
	}
	return nil
}

func (p *PostgresIndex) Search(ctx context.Context, query string, k int) ([]Match, error) {
	queryVec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(queryVec)

	rows, err := p.pool.Query(ctx, `
		SELECT id, content, document_id, chunk_index, source,
		       embedding <=> $1 AS distance
		FROM vector_records
		WHERE namespace = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vec, p.namespace, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Text, &m.Metadata.DocumentID, &m.Metadata.ChunkIndex,
			&m.Metadata.Source, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PostgresIndex) Contains(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vector_records WHERE id = $1 AND namespace = $2)`,
		id, p.namespace,
	).Scan(&exists)
	return exists, err
}

func (p *PostgresIndex) HasAny(ctx context.Context) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vector_records WHERE namespace = $1)`,
		p.namespace,
	).Scan(&exists)
	return exists, err
}

func (p *PostgresIndex) Reset(ctx context.Context) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM vector_records WHERE namespace = $1`, p.namespace)
	if err == nil {
		p.log.Info("vector index reset")
	}
	return err
}
