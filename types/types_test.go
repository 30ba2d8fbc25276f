package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecisionMode(t *testing.T) {
	for _, s := range []string{"accurate", "interactive", "flexible"} {
		mode, err := ParsePrecisionMode(s)
		require.NoError(t, err)
		assert.Equal(t, PrecisionMode(s), mode)
	}

	_, err := ParsePrecisionMode("turbo")
	assert.Error(t, err)
	_, err = ParsePrecisionMode("")
	assert.Error(t, err)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1_chunk_0", ChunkID("doc-1", 0))
	assert.Equal(t, "doc-1_chunk_12", ChunkID("doc-1", 12))
}

func TestQueryParamsValidate(t *testing.T) {
	valid := &QueryParams{Question: "what do cats do?", K: 5}
	assert.Nil(t, valid.Validate())

	missing := &QueryParams{}
	errs := missing.Validate()
	require.NotNil(t, errs)
	assert.Contains(t, errs, "Question")

	tooMany := &QueryParams{Question: "q", K: 21}
	errs = tooMany.Validate()
	require.NotNil(t, errs)
	assert.Contains(t, errs, "K")
}

func TestModeParamsValidate(t *testing.T) {
	assert.Nil(t, (&ModeParams{Mode: "interactive"}).Validate())
	assert.NotNil(t, (&ModeParams{Mode: "turbo"}).Validate())
	assert.NotNil(t, (&ModeParams{}).Validate())
}

func TestConsistencyWarningString(t *testing.T) {
	w := ConsistencyWarning{
		DocumentID: "doc-1",
		ChunkIDs:   []string{ChunkID("doc-1", 0), ChunkID("doc-1", 1)},
	}
	assert.Equal(t, "vector index write failed for 2 chunks of document doc-1", w.String())
}
