// Package chunker splits raw files into ordered text chunks plus
// document-level metadata. Format support is table-driven: one Chunker
// per file extension, selected through a Registry.
package chunker

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"hiraku/types"
)

// Chunker turns one file into an ordered sequence of text chunks.
type Chunker interface {
	Process(ctx context.Context, path string) (*types.ProcessedDocument, error)
}

// extractor pulls the full text out of one file format. Splitting into
// chunks is shared across formats.
type extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// splitter cuts extracted text into ordered chunks.
type splitter interface {
	Split(text string) []string
}

// Config holds chunking parameters shared by all formats.
type Config struct {
	ChunkSize    int // tokens per chunk
	ChunkOverlap int // tokens shared between consecutive chunks
	ConverterURL string
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 200
	}
	return c
}

// Registry maps file extensions to chunkers.
type Registry struct {
	chunkers map[string]Chunker
}

// NewRegistry builds the default registry covering the supported
// text-based formats.
func NewRegistry(cfg Config) (*Registry, error) {
	cfg = cfg.withDefaults()
	splitter, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init splitter: %w", err)
	}

	r := &Registry{chunkers: make(map[string]Chunker)}
	r.Register(".txt", &splitChunker{ex: textExtractor{}, splitter: splitter})
	r.Register(".md", &splitChunker{ex: textExtractor{}, splitter: splitter})
	r.Register(".json", &splitChunker{ex: jsonExtractor{}, splitter: splitter})
	r.Register(".csv", &splitChunker{ex: csvExtractor{}, splitter: splitter})
	r.Register(".pdf", &splitChunker{ex: newPDFExtractor(cfg.ConverterURL), splitter: splitter})
	return r, nil
}

func (r *Registry) Register(ext string, c Chunker) {
	r.chunkers[strings.ToLower(ext)] = c
}

// ForFile resolves the chunker for a path by extension.
func (r *Registry) ForFile(path string) (Chunker, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := r.chunkers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return c, nil
}

// Process selects the chunker by extension and runs it.
func (r *Registry) Process(ctx context.Context, path string) (*types.ProcessedDocument, error) {
	c, err := r.ForFile(path)
	if err != nil {
		return nil, err
	}
	return c.Process(ctx, path)
}

// Supported reports whether files with the given path's extension can
// be processed.
func (r *Registry) Supported(path string) bool {
	_, ok := r.chunkers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// splitChunker extracts full text with a format-specific extractor and
// splits it into token windows.
type splitChunker struct {
	ex       extractor
	splitter splitter
}

func (s *splitChunker) Process(ctx context.Context, path string) (*types.ProcessedDocument, error) {
	meta := types.DocumentMeta{
		FilePath: path,
		FileType: fileType(path),
		Status:   types.StatusSuccess,
	}

	text, err := s.ex.Extract(ctx, path)
	if err != nil {
		meta.Status = types.StatusError
		meta.ErrorMessage = err.Error()
		return &types.ProcessedDocument{Meta: meta}, fmt.Errorf("extract %s: %w", path, err)
	}

	chunks := s.splitter.Split(text)
	return &types.ProcessedDocument{Chunks: chunks, Meta: meta}, nil
}

func fileType(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		t = "application/octet-stream"
	}
	return t
}
