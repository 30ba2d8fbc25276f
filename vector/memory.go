package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"hiraku/model"
)

type memoryRecord struct {
	text      string
	metadata  Metadata
	embedding []float32
}

// MemoryIndex keeps vector records in process memory. It backs tests
// and the no-Postgres development mode; behavior mirrors PostgresIndex.
type MemoryIndex struct {
	embedder model.Embedder

	mu      sync.RWMutex
	records map[string]memoryRecord
}

func NewMemoryIndex(embedder model.Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		records:  make(map[string]memoryRecord),
	}
}

func (m *MemoryIndex) Add(ctx context.Context, ids []string, texts []string, metadatas []Metadata) error {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, texts and metadatas must have equal length")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := m.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ids[i], err)
		}
		embeddings[i] = emb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if _, ok := m.records[id]; ok {
			continue
		}
		m.records[id] = memoryRecord{
			text:      texts[i],
			metadata:  metadatas[i],
			embedding: embeddings[i],
		}
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]Match, error) {
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.records))
	for id, rec := range m.records {
		matches = append(matches, Match{
			ID:       id,
			Text:     rec.text,
			Metadata: rec.metadata,
			Distance: cosineDistance(queryVec, rec.embedding),
		})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) Contains(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok, nil
}

func (m *MemoryIndex) HasAny(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records) > 0, nil
}

func (m *MemoryIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]memoryRecord)
	return nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
