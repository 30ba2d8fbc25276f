package types

import (
	"fmt"
	"time"
)

// PrecisionMode controls how strictly the language model must stick to
// retrieved document context when answering.
type PrecisionMode string

const (
	ModeAccurate    PrecisionMode = "accurate"
	ModeInteractive PrecisionMode = "interactive"
	ModeFlexible    PrecisionMode = "flexible"
)

func ParsePrecisionMode(s string) (PrecisionMode, error) {
	switch PrecisionMode(s) {
	case ModeAccurate, ModeInteractive, ModeFlexible:
		return PrecisionMode(s), nil
	}
	return "", fmt.Errorf("unknown precision mode %q", s)
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Document is a single ingested file. Its ID is derived deterministically
// from the tenant and the canonical file path, so re-ingesting the same
// file always resolves to the same record.
type Document struct {
	ID          string
	Tenant      string
	Filepath    string
	Filename    string
	FileType    string
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Chunk is the unit of retrieval: a contiguous span of extracted text.
// Its ID is deterministic from (document ID, chunk index) and unique
// across the corpus.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	ChunkIndex int
	CreatedAt  time.Time
}

// ChunkID derives the deterministic chunk identifier.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// ChatMessage is one turn of a conversation, append-only,
// ordered by (timestamp, id).
type ChatMessage struct {
	ID        int64
	Tenant    string
	SessionID int64
	Role      string
	Content   string
	Timestamp time.Time
}

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID        int64
	Tenant    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DocumentMeta is the document-level metadata a chunker reports
// alongside the extracted chunks.
type DocumentMeta struct {
	DocID        string
	FilePath     string
	FileType     string
	Status       string
	ErrorMessage string
}

// ProcessedDocument is the chunker output: an ordered sequence of text
// chunks plus document-level metadata.
type ProcessedDocument struct {
	Chunks []string
	Meta   DocumentMeta
}

// FileFailure records a file that could not be ingested. Ingestion of
// the remaining files continues.
type FileFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ConsistencyWarning reports chunks that were written to the metadata
// store but not to the vector index (the inconsistency window of a
// failed vector write). It is surfaced in the report, never raised.
type ConsistencyWarning struct {
	DocumentID string   `json:"document_id"`
	Path       string   `json:"path"`
	ChunkIDs   []string `json:"chunk_ids"`
}

func (w ConsistencyWarning) String() string {
	return fmt.Sprintf("vector index write failed for %d chunks of document %s", len(w.ChunkIDs), w.DocumentID)
}

// IngestReport aggregates the outcome of one Ingest call.
type IngestReport struct {
	Processed   int                  `json:"processed"`
	Skipped     int                  `json:"skipped"`
	ChunksAdded int                  `json:"chunks_added"`
	Failures    []FileFailure        `json:"failures,omitempty"`
	Warnings    []ConsistencyWarning `json:"warnings,omitempty"`
}

// Source is one retrieved chunk backing an answer.
type Source struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// Answer is the orchestrator response for a question.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}
