package chunker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiraku/types"
)

// paragraphSplitter cuts on blank lines; tests don't need token-exact
// windows, only the extract-then-split pipeline.
type paragraphSplitter struct{}

func (paragraphSplitter) Split(text string) []string {
	var chunks []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSplitChunkerText(t *testing.T) {
	path := writeFile(t, "notes.txt", "first paragraph\n\nsecond paragraph\n")
	c := &splitChunker{ex: textExtractor{}, splitter: paragraphSplitter{}}

	doc, err := c.Process(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first paragraph", "second paragraph"}, doc.Chunks)
	assert.Equal(t, types.StatusSuccess, doc.Meta.Status)
	assert.Equal(t, path, doc.Meta.FilePath)
	assert.Contains(t, doc.Meta.FileType, "text/plain")
}

func TestSplitChunkerMissingFile(t *testing.T) {
	c := &splitChunker{ex: textExtractor{}, splitter: paragraphSplitter{}}

	doc, err := c.Process(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, types.StatusError, doc.Meta.Status)
	assert.NotEmpty(t, doc.Meta.ErrorMessage)
	assert.Empty(t, doc.Chunks)
}

func TestJSONExtractor(t *testing.T) {
	path := writeFile(t, "data.json", `{"title":"report","pages":3}`)

	text, err := jsonExtractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "\"title\": \"report\"")
	assert.Contains(t, text, "\"pages\": 3")
}

func TestJSONExtractorInvalid(t *testing.T) {
	path := writeFile(t, "broken.json", `{"title":`)

	_, err := jsonExtractor{}.Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestCSVExtractor(t *testing.T) {
	path := writeFile(t, "people.csv", "name,age\nAlice,34\nBob,28\n")

	text, err := csvExtractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "name: Alice")
	assert.Contains(t, text, "age: 34")
	assert.Contains(t, text, "name: Bob")
}

func TestCSVExtractorHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", "name,age\n")

	text, err := csvExtractor{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

type staticChunker struct {
	chunks []string
}

func (s staticChunker) Process(_ context.Context, path string) (*types.ProcessedDocument, error) {
	return &types.ProcessedDocument{
		Chunks: s.chunks,
		Meta:   types.DocumentMeta{FilePath: path, Status: types.StatusSuccess},
	}, nil
}

func TestRegistryDispatch(t *testing.T) {
	r := &Registry{chunkers: make(map[string]Chunker)}
	r.Register(".TXT", staticChunker{chunks: []string{"text"}})
	r.Register(".pdf", staticChunker{chunks: []string{"pdf"}})

	assert.True(t, r.Supported("/docs/a.txt"))
	assert.True(t, r.Supported("/docs/B.PDF"))
	assert.False(t, r.Supported("/docs/a.docx"))

	doc, err := r.Process(context.Background(), "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, doc.Chunks)

	_, err = r.ForFile("/docs/a.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
