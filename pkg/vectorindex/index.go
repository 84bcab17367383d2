// Package vectorindex builds and queries the per-session document index.
// Chunk vectors live in an in-memory chromem-go collection; the index is
// built once from all uploaded documents combined and queried many times.
package vectorindex

import (
	"context"
	"fmt"
	"math"

	"github.com/philippgille/chromem-go"

	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/store"
)

const collectionName = "session-documents"

// ChunkID is the stable source tag for the chunk at position i of the
// combined cross-document chunk sequence.
func ChunkID(i int) string {
	return fmt.Sprintf("%d-pl", i)
}

// Builder embeds chunk texts in batches and assembles the index.
type Builder struct {
	embedder  embedding.EmbeddingProvider
	batchSize int
}

func NewBuilder(embedder embedding.EmbeddingProvider, batchSize int) *Builder {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Builder{embedder: embedder, batchSize: batchSize}
}

// Build embeds every chunk and returns a queryable index. Any batch
// failure fails the whole build; no partial index is ever returned.
func (b *Builder) Build(ctx context.Context, chunks []string) (*Index, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := b.embedder.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", start/b.batchSize, err)
		}
		vectors = append(vectors, batch...)
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	for i, text := range chunks {
		doc := chromem.Document{
			ID:        ChunkID(i),
			Content:   text,
			Embedding: normalize(vectors[i]),
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", ChunkID(i), err)
		}
	}

	return &Index{
		collection: collection,
		embedder:   b.embedder,
		count:      len(chunks),
	}, nil
}

// Index is an embedding-backed nearest-neighbor store over chunk texts.
type Index struct {
	collection *chromem.Collection
	embedder   embedding.EmbeddingProvider
	count      int
}

var _ store.DocumentIndex = (*Index)(nil)

// Query embeds text and returns up to k hits ranked by similarity
// descending. k is clamped to the number of indexed chunks.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]store.QueryHit, error) {
	if idx.count == 0 || k < 1 {
		return nil, nil
	}
	if k > idx.count {
		k = idx.count
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := idx.collection.QueryEmbedding(ctx, normalize(vectors[0]), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	hits := make([]store.QueryHit, 0, len(results))
	for _, result := range results {
		hits = append(hits, store.QueryHit{ChunkID: result.ID, Score: result.Similarity})
	}
	return hits, nil
}

// Len reports how many chunks are indexed.
func (idx *Index) Len() int {
	return idx.count
}

// normalize scales a vector to unit length; cosine similarity expects
// normalized vectors.
func normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
