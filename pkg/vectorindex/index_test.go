package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed vectors per text so similarity ranking is
// predictable without a live endpoint.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
	fail    bool
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("embedding endpoint down")
	}
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		vec, ok := s.vectors[input]
		if !ok {
			return nil, errors.New("unexpected input: " + input)
		}
		out[i] = vec
	}
	return out, nil
}

func newStub() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"apples grow on trees":     {1, 0, 0},
		"bananas are yellow":       {0, 1, 0},
		"carrots live underground": {0, 0, 1},
		"tell me about apples":     {0.95, 0.05, 0},
	}}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "0-pl", ChunkID(0))
	assert.Equal(t, "7-pl", ChunkID(7))
}

func TestBuildAssignsSequentialIDs(t *testing.T) {
	stub := newStub()
	builder := NewBuilder(stub, 16)

	idx, err := builder.Build(context.Background(), []string{
		"apples grow on trees",
		"bananas are yellow",
		"carrots live underground",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Query(context.Background(), "tell me about apples", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	seen := map[string]bool{}
	for _, hit := range hits {
		seen[hit.ChunkID] = true
	}
	assert.Equal(t, map[string]bool{"0-pl": true, "1-pl": true, "2-pl": true}, seen)
}

func TestQueryRanksBySimilarity(t *testing.T) {
	stub := newStub()
	idx, err := NewBuilder(stub, 16).Build(context.Background(), []string{
		"apples grow on trees",
		"bananas are yellow",
	})
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), "tell me about apples", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "0-pl", hits[0].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestQueryClampsK(t *testing.T) {
	stub := newStub()
	idx, err := NewBuilder(stub, 16).Build(context.Background(), []string{
		"apples grow on trees",
	})
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), "tell me about apples", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBuildBatchesInputs(t *testing.T) {
	stub := newStub()
	_, err := NewBuilder(stub, 2).Build(context.Background(), []string{
		"apples grow on trees",
		"bananas are yellow",
		"carrots live underground",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls) // 3 chunks in batches of 2
}

func TestBuildFailsWhole(t *testing.T) {
	stub := newStub()
	stub.fail = true

	idx, err := NewBuilder(stub, 2).Build(context.Background(), []string{"apples grow on trees"})
	assert.Error(t, err)
	assert.Nil(t, idx)
}
