package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiraku/logger"
	"hiraku/types"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DBStorer is the relational metadata store: the source of truth for
// what has been ingested, and the dedup ledger for the ingestion path.
type DBStorer interface {
	UpsertDocument(ctx context.Context, doc types.Document) error
	// InsertChunk inserts a chunk row atomically. It reports false when
	// a chunk with the same deterministic ID already exists; the
	// conflict signal comes from the store itself, not a prior read.
	InsertChunk(ctx context.Context, chunk types.Chunk) (bool, error)
	GetDocumentByPath(ctx context.Context, tenant, filepath string) (*types.Document, error)
	ChunkIDsByDocument(ctx context.Context, docID string) ([]string, error)
	ListDocuments(ctx context.Context, tenant string) ([]types.Document, error)
	Reset(ctx context.Context, tenant string) error
}

// ChatStorer persists chat sessions and their append-only messages.
type ChatStorer interface {
	CreateSession(ctx context.Context, tenant, title string) (int64, error)
	SaveChatMessage(ctx context.Context, msg types.ChatMessage) error
	// GetChatHistory returns up to limit messages of a session in
	// (timestamp, id) ascending order.
	GetChatHistory(ctx context.Context, tenant string, sessionID int64, limit int) ([]types.ChatMessage, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, log *logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{
		pool: pool,
		log:  log.With("component", "metadata_store"),
	}, nil
}

// Pool exposes the underlying connection pool so the vector index can
// share it.
func (p *PostgresStore) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		filepath TEXT NOT NULL,
		filename TEXT NOT NULL,
		file_type TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		last_updated TIMESTAMP WITH TIME ZONE NOT NULL,
		UNIQUE (tenant, filepath)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id),
		content TEXT NOT NULL,
		chunk_index INT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id BIGSERIAL PRIMARY KEY,
		tenant TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		tenant TEXT NOT NULL,
		session_id BIGINT NOT NULL REFERENCES chat_sessions(id),
		role TEXT NOT NULL CHECK (role IN ('user','assistant')),
		content TEXT NOT NULL,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, timestamp, id);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) UpsertDocument(ctx context.Context, doc types.Document) error {
	query := `INSERT INTO documents (id, tenant, filepath, filename, file_type, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			file_type = EXCLUDED.file_type,
			last_updated = EXCLUDED.last_updated
		`
	_, err := p.pool.Exec(ctx, query,
		doc.ID, doc.Tenant, doc.Filepath, doc.Filename, doc.FileType,
		doc.CreatedAt, doc.LastUpdated,
	)
	return err
}

func (p *PostgresStore) InsertChunk(ctx context.Context, c types.Chunk) (bool, error) {
	query := `
	INSERT INTO chunks (id, document_id, content, chunk_index, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING
	`
	tag, err := p.pool.Exec(ctx, query,
		c.ID, c.DocumentID, c.Content, c.ChunkIndex, c.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) GetDocumentByPath(ctx context.Context, tenant, filepath string) (*types.Document, error) {
	doc := &types.Document{}
	err := p.pool.QueryRow(ctx,
		`SELECT id, tenant, filepath, filename, file_type, created_at, last_updated
		 FROM documents WHERE tenant = $1 AND filepath = $2`,
		tenant, filepath,
	).Scan(&doc.ID, &doc.Tenant, &doc.Filepath, &doc.Filename, &doc.FileType,
		&doc.CreatedAt, &doc.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresStore) ChunkIDsByDocument(ctx context.Context, docID string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresStore) ListDocuments(ctx context.Context, tenant string) ([]types.Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, tenant, filepath, filename, file_type, created_at, last_updated
		 FROM documents WHERE tenant = $1 ORDER BY created_at DESC`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.Tenant, &doc.Filepath, &doc.Filename,
			&doc.FileType, &doc.CreatedAt, &doc.LastUpdated); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Reset deletes one tenant's documents and chunks. Chat history is kept.
func (p *PostgresStore) Reset(ctx context.Context, tenant string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE tenant = $1)`,
		tenant); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE tenant = $1`, tenant); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.log.Info("postgres connection pool closed")
	}
	return nil
}
