// Package vector provides the embedding-backed similarity index.
// Records are keyed by chunk ID and live in a per-tenant namespace so
// that searches never cross user boundaries.
package vector

import "context"

// Metadata travels with every vector record and comes back on search.
type Metadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Source     string `json:"source"`
}

// Match is one search result. Distance is cosine distance; callers
// report similarity as 1 - Distance.
type Match struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}

// Index is the searchable side of the two-store pair. Add embeds the
// texts with the index's embedding function and inserts them under the
// given IDs; an ID that is already present is left untouched, so a
// concurrent duplicate insert never yields two records.
type Index interface {
	Add(ctx context.Context, ids []string, texts []string, metadatas []Metadata) error
	Search(ctx context.Context, query string, k int) ([]Match, error)
	Contains(ctx context.Context, id string) (bool, error)
	HasAny(ctx context.Context) (bool, error)
	// Reset deletes every record in this index's namespace but keeps
	// the namespace and embedding configuration.
	Reset(ctx context.Context) error
}
