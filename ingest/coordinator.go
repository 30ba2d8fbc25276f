// Package ingest drives the chunker and writes each document to the
// metadata store and the vector index. The metadata store is written
// first: it is the transactional side and acts as the dedup ledger, so
// a vector record must never exist without its ledger entry.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hiraku/logger"
	"hiraku/store"
	"hiraku/types"
	"hiraku/vector"
)

// Chunker is the external collaborator producing text spans from a file.
type Chunker interface {
	Process(ctx context.Context, path string) (*types.ProcessedDocument, error)
}

// Coordinator ingests files for one tenant. It holds no cross-request
// locks; concurrent calls rely on the stores' atomic-insert signals.
type Coordinator struct {
	tenant  string
	chunker Chunker
	meta    store.DBStorer
	index   vector.Index
	log     *logger.Logger
	now     func() time.Time
}

func NewCoordinator(tenant string, chunker Chunker, meta store.DBStorer, index vector.Index, log *logger.Logger) *Coordinator {
	return &Coordinator{
		tenant:  tenant,
		chunker: chunker,
		meta:    meta,
		index:   index,
		log:     log.With("component", "ingest", "tenant", tenant),
		now:     time.Now,
	}
}

// DocumentID derives the deterministic document identifier from the
// tenant and the canonical file path. Re-ingesting the same file always
// produces the same ID.
func DocumentID(tenant, canonicalPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hiraku://"+tenant+canonicalPath)).String()
}

// Ingest processes the given files. No single file's failure aborts the
// call: failures and consistency warnings are aggregated in the report.
// An error is returned only for call-level misuse.
func (c *Coordinator) Ingest(ctx context.Context, paths []string) (*types.IngestReport, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("ingest: no file paths given")
	}

	report := &types.IngestReport{}
	seen := make(map[string]bool, len(paths))

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			c.fail(report, path, fmt.Errorf("resolve path: %w", err))
			continue
		}

		// In-batch dedup.
		if seen[abs] {
			report.Skipped++
			continue
		}
		seen[abs] = true

		c.ingestFile(ctx, abs, report)
	}
	return report, nil
}

func (c *Coordinator) ingestFile(ctx context.Context, abs string, report *types.IngestReport) {
	// Cross-run dedup: skip only when the metadata row exists and the
	// vector index holds every one of its chunk IDs. Chunks missing
	// from the index are remembered so a later conflict on their
	// metadata row does not suppress the vector repair.
	missing, complete, err := c.verifyExisting(ctx, abs)
	if err != nil {
		c.fail(report, abs, fmt.Errorf("dedup check: %w", err))
		return
	}
	if complete {
		report.Skipped++
		return
	}

	processed, err := c.chunker.Process(ctx, abs)
	if err != nil {
		c.fail(report, abs, err)
		return
	}
	if processed.Meta.Status != types.StatusSuccess {
		c.fail(report, abs, fmt.Errorf("chunker: %s", processed.Meta.ErrorMessage))
		return
	}

	docID := DocumentID(c.tenant, abs)
	now := c.now().UTC()
	doc := types.Document{
		ID:          docID,
		Tenant:      c.tenant,
		Filepath:    abs,
		Filename:    filepath.Base(abs),
		FileType:    processed.Meta.FileType,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := c.meta.UpsertDocument(ctx, doc); err != nil {
		c.fail(report, abs, fmt.Errorf("save document: %w", err))
		return
	}

	var (
		newIDs   []string
		newTexts []string
		newMetas []vector.Metadata
	)
	for i, content := range processed.Chunks {
		chunk := types.Chunk{
			ID:         types.ChunkID(docID, i),
			DocumentID: docID,
			Content:    content,
			ChunkIndex: i,
			CreatedAt:  now,
		}
		inserted, err := c.meta.InsertChunk(ctx, chunk)
		if err != nil {
			c.fail(report, abs, fmt.Errorf("save chunk %s: %w", chunk.ID, err))
			return
		}
		// A conflicting chunk row means the chunk was indexed by an
		// earlier run, unless the dedup check saw it missing from the
		// vector index.
		if !inserted && !missing[chunk.ID] {
			continue
		}
		newIDs = append(newIDs, chunk.ID)
		newTexts = append(newTexts, content)
		newMetas = append(newMetas, vector.Metadata{
			DocumentID: docID,
			ChunkIndex: i,
			Source:     abs,
		})
	}

	if len(newIDs) > 0 {
		// The vector write is not atomic with the metadata write. If it
		// fails, the chunk rows stay behind: a recognized inconsistency
		// window, surfaced in the report instead of hidden.
		if err := c.index.Add(ctx, newIDs, newTexts, newMetas); err != nil {
			warning := types.ConsistencyWarning{
				DocumentID: docID,
				Path:       abs,
				ChunkIDs:   newIDs,
			}
			report.Warnings = append(report.Warnings, warning)
			c.log.Error("vector index write failed",
				"document_id", docID,
				"path", abs,
				"chunks", len(newIDs),
				"error", err,
			)
			report.Processed++
			return
		}
		report.ChunksAdded += len(newIDs)
	}

	report.Processed++
	c.log.Info("document ingested",
		"document_id", docID,
		"path", abs,
		"chunks_added", len(newIDs),
	)
}

// verifyExisting reports whether the file is already fully ingested.
// It returns the set of chunk IDs present in the metadata store but
// absent from the vector index.
func (c *Coordinator) verifyExisting(ctx context.Context, abs string) (missing map[string]bool, complete bool, err error) {
	doc, err := c.meta.GetDocumentByPath(ctx, c.tenant, abs)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	chunkIDs, err := c.meta.ChunkIDsByDocument(ctx, doc.ID)
	if err != nil {
		return nil, false, err
	}
	if len(chunkIDs) == 0 {
		return nil, false, nil
	}

	missing = make(map[string]bool)
	for _, id := range chunkIDs {
		ok, err := c.index.Contains(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			missing[id] = true
		}
	}
	return missing, len(missing) == 0, nil
}

func (c *Coordinator) fail(report *types.IngestReport, path string, err error) {
	report.Failures = append(report.Failures, types.FileFailure{
		Path:   path,
		Reason: err.Error(),
	})
	c.log.Error("file ingestion failed", "path", path, "error", err)
}
