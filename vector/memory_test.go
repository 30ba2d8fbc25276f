package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vecs map[string][]float32
}

func (f fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	index := NewMemoryIndex(fixedEmbedder{vecs: map[string][]float32{
		"near":    {1, 0.1, 0},
		"farther": {1, 1, 0},
		"distant": {0, 1, 0},
	}})
	err := index.Add(context.Background(),
		[]string{"a", "b", "c"},
		[]string{"near", "farther", "distant"},
		[]Metadata{
			{DocumentID: "d1", ChunkIndex: 0, Source: "/x"},
			{DocumentID: "d1", ChunkIndex: 1, Source: "/x"},
			{DocumentID: "d2", ChunkIndex: 0, Source: "/y"},
		},
	)
	require.NoError(t, err)
	return index
}

func TestMemoryIndexSearchOrdering(t *testing.T) {
	index := seededIndex(t)

	matches, err := index.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
	assert.Equal(t, "d1", matches[0].Metadata.DocumentID)
}

func TestMemoryIndexSearchKLargerThanStore(t *testing.T) {
	index := seededIndex(t)
	matches, err := index.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestMemoryIndexAddMismatchedLengths(t *testing.T) {
	index := NewMemoryIndex(fixedEmbedder{})
	err := index.Add(context.Background(), []string{"a"}, []string{"x", "y"}, []Metadata{{}})
	assert.Error(t, err)
}

func TestMemoryIndexDuplicateAddIsNoop(t *testing.T) {
	index := NewMemoryIndex(fixedEmbedder{vecs: map[string][]float32{
		"original": {1, 0, 0},
		"replaced": {0, 1, 0},
	}})
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []string{"a"}, []string{"original"}, []Metadata{{}}))
	require.NoError(t, index.Add(ctx, []string{"a"}, []string{"replaced"}, []Metadata{{}}))

	matches, err := index.Search(ctx, "query", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "original", matches[0].Text, "first write wins")
}

func TestMemoryIndexContainsHasAnyReset(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(fixedEmbedder{})

	hasAny, err := index.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, hasAny)

	require.NoError(t, index.Add(ctx, []string{"a"}, []string{"text"}, []Metadata{{}}))

	ok, err := index.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = index.Contains(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	hasAny, err = index.HasAny(ctx)
	require.NoError(t, err)
	assert.True(t, hasAny)

	require.NoError(t, index.Reset(ctx))
	hasAny, err = index.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, hasAny)
}
