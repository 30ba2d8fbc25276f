package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiraku/ingest"
	"hiraku/logger"
	"hiraku/store"
	"hiraku/types"
	"hiraku/vector"
)

// memDocs is an in-memory DBStorer for handler tests.
type memDocs struct {
	docs   map[string]types.Document
	chunks map[string]types.Chunk
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]types.Document), chunks: make(map[string]types.Chunk)}
}

func (m *memDocs) UpsertDocument(_ context.Context, doc types.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocs) InsertChunk(_ context.Context, c types.Chunk) (bool, error) {
	if _, ok := m.chunks[c.ID]; ok {
		return false, nil
	}
	m.chunks[c.ID] = c
	return true, nil
}

func (m *memDocs) GetDocumentByPath(_ context.Context, tenant, path string) (*types.Document, error) {
	for _, d := range m.docs {
		if d.Tenant == tenant && d.Filepath == path {
			doc := d
			return &doc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memDocs) ChunkIDsByDocument(_ context.Context, docID string) ([]string, error) {
	var ids []string
	for id, c := range m.chunks {
		if c.DocumentID == docID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memDocs) ListDocuments(_ context.Context, tenant string) ([]types.Document, error) {
	var docs []types.Document
	for _, d := range m.docs {
		if d.Tenant == tenant {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (m *memDocs) Reset(_ context.Context, tenant string) error {
	for id, d := range m.docs {
		if d.Tenant == tenant {
			for cid, c := range m.chunks {
				if c.DocumentID == id {
					delete(m.chunks, cid)
				}
			}
			delete(m.docs, id)
		}
	}
	return nil
}

// lineChunker splits uploads on newlines; enough to drive ingestion.
type lineChunker struct{}

func (lineChunker) Process(_ context.Context, path string) (*types.ProcessedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			chunks = append(chunks, line)
		}
	}
	return &types.ProcessedDocument{
		Chunks: chunks,
		Meta:   types.DocumentMeta{FilePath: path, FileType: "text/plain", Status: types.StatusSuccess},
	}, nil
}

func newFileTestApp(t *testing.T) (*fiber.App, *memDocs, *vector.MemoryIndex) {
	t.Helper()

	docs := newMemDocs()
	index := vector.NewMemoryIndex(flatEmbedder{})
	coordinators := func(tenant string) (*ingest.Coordinator, error) {
		return ingest.NewCoordinator(tenant, lineChunker{}, docs, index, logger.NewNop()), nil
	}
	indexes := func(string) (vector.Index, error) { return index, nil }
	h := NewFileHandler(coordinators, indexes, docs, t.TempDir(), logger.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/upload", h.HandleUpload)
	app.Get("/api/v1/documents", h.HandleListDocuments)
	app.Delete("/api/v1/documents", h.HandleReset)
	return app, docs, index
}

func uploadFile(t *testing.T, app *fiber.App, name, content string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User", "alice")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestHandleUpload(t *testing.T) {
	app, docs, index := newFileTestApp(t)

	resp := uploadFile(t, app, "notes.txt", "first line\nsecond line\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report types.IngestReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.ChunksAdded)
	assert.Empty(t, report.Failures)

	require.Len(t, docs.docs, 1)
	for _, d := range docs.docs {
		assert.Equal(t, "alice", d.Tenant)
		assert.Equal(t, "notes.txt", d.Filename)
		assert.Equal(t, filepath.Base(d.Filepath), d.Filename)
	}
	hasAny, err := index.HasAny(context.Background())
	require.NoError(t, err)
	assert.True(t, hasAny)
}

func TestHandleUploadMissingFile(t *testing.T) {
	app, _, _ := newFileTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
	req.Header.Set("X-User", "alice")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleListDocuments(t *testing.T) {
	app, _, _ := newFileTestApp(t)
	uploadFile(t, app, "notes.txt", "a line\n")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-User", "alice")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Documents []struct {
			Filename string `json:"filename"`
		} `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "notes.txt", out.Documents[0].Filename)

	// Another tenant sees nothing.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-User", "bob")
	resp, err = app.Test(req, 5000)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Documents)
}

func TestHandleReset(t *testing.T) {
	app, docs, index := newFileTestApp(t)
	uploadFile(t, app, "notes.txt", "a line\n")
	require.NotEmpty(t, docs.docs)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents", nil)
	req.Header.Set("X-User", "alice")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, docs.docs)
	assert.Empty(t, docs.chunks)
	hasAny, err := index.HasAny(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAny)
}
